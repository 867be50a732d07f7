package arr

import (
	"context"
	"fmt"
	"net/url"
)

// rawArtist is an artist lookup hit as the backend returns it.
type rawArtist struct {
	ArtistName      string `json:"artistName"`
	ForeignArtistID string `json:"foreignArtistId"`
	ArtistType      string `json:"artistType"`
	Statistics      *struct {
		AlbumCount int `json:"albumCount"`
	} `json:"statistics"`
	Images []struct {
		CoverType string `json:"coverType"`
		RemoteURL string `json:"remoteUrl"`
	} `json:"images"`
}

func normalizeArtists(raw []rawArtist) []SearchResult {
	results := make([]SearchResult, 0, len(raw))
	for _, a := range raw {
		if a.ArtistName == "" || a.ForeignArtistID == "" || a.ArtistType == "" || a.Statistics == nil {
			continue
		}
		results = append(results, SearchResult{
			ExternalID: a.ForeignArtistID,
			Title:      a.ArtistName,
			Poster:     artistPoster(a),
			AlbumCount: a.Statistics.AlbumCount,
		})
	}
	return results
}

// artistPoster prefers a poster or fanart image and falls back to the
// first image of any kind.
func artistPoster(a rawArtist) string {
	for _, img := range a.Images {
		if img.CoverType == "poster" || img.CoverType == "fanart" {
			return img.RemoteURL
		}
	}
	if len(a.Images) > 0 {
		return a.Images[0].RemoteURL
	}
	return ""
}

func (c *Client) buildArtistAddPayload(ctx context.Context, req AddRequest) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set("term", "lidarr:"+req.ExternalID)

	var looked []map[string]interface{}
	if err := c.getJSON(ctx, "artist/lookup", params, &looked); err != nil {
		return nil, fmt.Errorf("artist lookup before add failed: %w", err)
	}
	if len(looked) == 0 {
		return nil, fmt.Errorf("artist %s not found", req.ExternalID)
	}

	// The music backend accepts the looked-up record itself as the add
	// body once the library fields are filled in.
	payload := looked[0]
	payload["qualityProfileId"] = req.QualityProfileID
	payload["rootFolderPath"] = req.Path
	payload["monitored"] = true
	payload["tags"] = req.TagIDs
	payload["addOptions"] = map[string]interface{}{
		"monitor":                "all",
		"searchForMissingAlbums": c.options.Search,
	}
	return payload, nil
}

// buildAddPayload dispatches payload construction on the media type.
func (c *Client) buildAddPayload(ctx context.Context, req AddRequest) (map[string]interface{}, error) {
	switch c.mediaType {
	case MediaTypeMovie:
		return c.buildMovieAddPayload(ctx, req)
	case MediaTypeSeries:
		return c.buildSeriesAddPayload(ctx, req)
	case MediaTypeMusic:
		return c.buildArtistAddPayload(ctx, req)
	}
	return nil, fmt.Errorf("unknown media type %q", c.mediaType)
}
