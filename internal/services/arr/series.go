package arr

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// rawSeries is a series lookup hit as the backend returns it. The
// statistics block is a pointer so a record that omits it entirely can
// be told apart from one with zero seasons.
type rawSeries struct {
	Title        string `json:"title"`
	Year         int    `json:"year"`
	TvdbID       int64  `json:"tvdbId"`
	RemotePoster string `json:"remotePoster"`
	Statistics   *struct {
		SeasonCount int `json:"seasonCount"`
	} `json:"statistics"`
}

func normalizeSeries(raw []rawSeries) []SearchResult {
	results := make([]SearchResult, 0, len(raw))
	for _, s := range raw {
		if s.Title == "" || s.Year == 0 || s.TvdbID == 0 || s.RemotePoster == "" || s.Statistics == nil {
			continue
		}
		results = append(results, SearchResult{
			ExternalID:  strconv.FormatInt(s.TvdbID, 10),
			Title:       s.Title,
			Year:        s.Year,
			Poster:      s.RemotePoster,
			SeasonCount: s.Statistics.SeasonCount,
		})
	}
	return results
}

// Seasons fetches the season list of a series that is not yet in the
// library, via the lookup endpoint.
func (c *Client) Seasons(ctx context.Context, externalID string) ([]Season, error) {
	if c.mediaType != MediaTypeSeries {
		return nil, fmt.Errorf("%s backend has no seasons", c.mediaType)
	}

	params := url.Values{}
	params.Set("term", "tvdb:"+externalID)

	var looked []struct {
		Seasons []Season `json:"seasons"`
	}
	if err := c.getJSON(ctx, "series/lookup", params, &looked); err != nil {
		return nil, err
	}
	if len(looked) == 0 {
		return nil, fmt.Errorf("series %s not found", externalID)
	}
	return looked[0].Seasons, nil
}

// seriesAddFields are the looked-up fields the add call must echo back.
var seriesAddFields = []string{"tvdbId", "tvRageId", "title", "titleSlug", "images"}

func (c *Client) buildSeriesAddPayload(ctx context.Context, req AddRequest) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set("term", "tvdb:"+req.ExternalID)

	var looked []map[string]interface{}
	if err := c.getJSON(ctx, "series/lookup", params, &looked); err != nil {
		return nil, fmt.Errorf("series lookup before add failed: %w", err)
	}
	if len(looked) == 0 {
		return nil, fmt.Errorf("series %s not found", req.ExternalID)
	}

	languageProfileID, err := c.languageProfileID(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"qualityProfileId":  req.QualityProfileID,
		"languageProfileId": languageProfileID,
		"rootFolderPath":    req.Path,
		"seasonFolder":      c.options.SeasonFolder,
		"monitored":         true,
		"tags":              req.TagIDs,
		"seasons":           req.Seasons,
		"addOptions": map[string]interface{}{
			"ignoreEpisodesWithFiles":    true,
			"ignoreEpisodesWithoutFiles": false,
			"searchForMissingEpisodes":   c.options.Search,
		},
	}
	for _, key := range seriesAddFields {
		if value, ok := looked[0][key]; ok {
			payload[key] = value
		}
	}
	return payload, nil
}

// languageProfileID resolves the configured language profile name,
// falling back to the backend's first profile when the name does not
// match.
func (c *Client) languageProfileID(ctx context.Context) (int64, error) {
	var profiles []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, "languageprofile", nil, &profiles); err != nil {
		return 0, fmt.Errorf("language profile lookup failed: %w", err)
	}
	if len(profiles) == 0 {
		return 0, fmt.Errorf("backend has no language profiles")
	}

	for _, p := range profiles {
		if p.Name == c.options.LanguageProfile {
			return p.ID, nil
		}
	}
	c.logger.WithField("profile", c.options.LanguageProfile).Debug(
		"Configured language profile not found, using the backend's first one")
	return profiles[0].ID, nil
}
