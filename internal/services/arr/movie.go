package arr

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// rawMovie is a movie lookup hit as the backend returns it.
type rawMovie struct {
	Title        string `json:"title"`
	Overview     string `json:"overview"`
	Year         int    `json:"year"`
	TmdbID       int64  `json:"tmdbId"`
	RemotePoster string `json:"remotePoster"`
}

// normalizeMovies drops lookup hits missing any required field rather
// than erroring on partial records. The poster is optional.
func normalizeMovies(raw []rawMovie) []SearchResult {
	results := make([]SearchResult, 0, len(raw))
	for _, m := range raw {
		if m.Title == "" || m.Overview == "" || m.Year == 0 || m.TmdbID == 0 {
			continue
		}
		results = append(results, SearchResult{
			ExternalID: strconv.FormatInt(m.TmdbID, 10),
			Title:      m.Title,
			Year:       m.Year,
			Poster:     m.RemotePoster,
		})
	}
	return results
}

// movieAddFields are the looked-up fields the add call must echo back.
var movieAddFields = []string{"tmdbId", "year", "title", "titleSlug", "images"}

func (c *Client) buildMovieAddPayload(ctx context.Context, req AddRequest) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set("tmdbId", req.ExternalID)

	var looked map[string]interface{}
	if err := c.getJSON(ctx, "movie/lookup/tmdb", params, &looked); err != nil {
		return nil, fmt.Errorf("movie lookup before add failed: %w", err)
	}

	payload := map[string]interface{}{
		"qualityProfileId":    req.QualityProfileID,
		"minimumAvailability": c.options.MinimumAvailability,
		"rootFolderPath":      req.Path,
		"addOptions":          map[string]interface{}{"searchForMovie": c.options.Search},
		"tags":                req.TagIDs,
	}
	for _, key := range movieAddFields {
		if value, ok := looked[key]; ok {
			payload[key] = value
		}
	}
	return payload, nil
}
