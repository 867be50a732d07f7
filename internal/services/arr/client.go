// Package arr wraps the REST APIs of the *arr media managers (movie,
// series and music variants) behind one client type. All three speak
// the same dialect: JSON bodies, an apikey query parameter, and success
// judged purely by HTTP status code (200 for reads and deletes, 201
// for creates). Error bodies are never interpreted.
package arr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chatarr/chatarr/internal/config"
)

// Options are the service-level settings shared by all instances of
// one media type.
type Options struct {
	Search              bool
	MinimumAvailability string
	SeasonFolder        bool
	LanguageProfile     string
}

// Client talks to one backend instance of one media type.
type Client struct {
	mediaType MediaType
	label     string
	baseURL   string
	apiKey    string
	apiPath   string

	excludedRootFolders     []string
	excludedQualityProfiles []string
	options                 Options

	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a client for one configured instance.
func NewClient(mediaType MediaType, inst config.Instance, arrCfg config.Arr, logger *logrus.Logger) (*Client, error) {
	if inst.Server.Addr == "" {
		return nil, fmt.Errorf("%s instance %q has no server address", mediaType, inst.Label)
	}
	if inst.APIKey == "" {
		return nil, fmt.Errorf("%s instance %q has no API key", mediaType, inst.Label)
	}

	apiPath := "api/v3/"
	if mediaType == MediaTypeMusic {
		apiPath = "api/v1/"
	}

	return &Client{
		mediaType:               mediaType,
		label:                   inst.Label,
		baseURL:                 inst.Server.URL(),
		apiKey:                  inst.APIKey,
		apiPath:                 apiPath,
		excludedRootFolders:     inst.ExcludedRootFolders,
		excludedQualityProfiles: inst.ExcludedQualityProfiles,
		options: Options{
			Search:              arrCfg.Search,
			MinimumAvailability: arrCfg.MinimumAvailability,
			SeasonFolder:        arrCfg.SeasonFolder,
			LanguageProfile:     arrCfg.LanguageProfile,
		},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}, nil
}

// MediaType returns which catalog this client serves.
func (c *Client) MediaType() MediaType {
	return c.mediaType
}

// Label returns the configured instance label.
func (c *Client) Label() string {
	return c.label
}

// Search looks the term up on the backend and returns normalized
// results. An empty slice with a nil error means the backend answered
// with no usable results; a non-nil error means the call itself
// failed.
func (c *Client) Search(ctx context.Context, term string) ([]SearchResult, error) {
	c.logger.WithFields(logrus.Fields{
		"service":  c.mediaType,
		"instance": c.label,
		"term":     term,
	}).Debug("Searching")

	params := url.Values{}
	params.Set("term", term)

	switch c.mediaType {
	case MediaTypeMovie:
		var raw []rawMovie
		if err := c.getJSON(ctx, "movie/lookup", params, &raw); err != nil {
			return nil, err
		}
		return normalizeMovies(raw), nil
	case MediaTypeSeries:
		var raw []rawSeries
		if err := c.getJSON(ctx, "series/lookup", params, &raw); err != nil {
			return nil, err
		}
		return normalizeSeries(raw), nil
	case MediaTypeMusic:
		var raw []rawArtist
		if err := c.getJSON(ctx, "artist/lookup", params, &raw); err != nil {
			return nil, err
		}
		return normalizeArtists(raw), nil
	}
	return nil, fmt.Errorf("unknown media type %q", c.mediaType)
}

// InLibrary reports whether the external id is already present in the
// backend's library. The backend has no membership endpoint, so this
// is a linear scan of the full listing.
func (c *Client) InLibrary(ctx context.Context, externalID string) (bool, error) {
	items, err := c.libraryRaw(ctx)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if c.externalID(item) == externalID {
			return true, nil
		}
	}
	return false, nil
}

// Add adds the item to the backend library. Success is exactly HTTP
// 201; anything else is a failure and there is no retry.
func (c *Client) Add(ctx context.Context, req AddRequest) error {
	payload, err := c.buildAddPayload(ctx, req)
	if err != nil {
		return err
	}

	status, err := c.send(ctx, http.MethodPost, c.libraryEndpoint(), nil, payload)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("%s add returned status %d", c.mediaType, status)
	}

	c.logger.WithFields(logrus.Fields{
		"service":     c.mediaType,
		"instance":    c.label,
		"external_id": req.ExternalID,
	}).Info("Added to library")
	return nil
}

// Remove deletes the item and its files from the backend library. The
// external id is resolved to the backend's own database id first.
func (c *Client) Remove(ctx context.Context, externalID string) error {
	items, err := c.libraryRaw(ctx)
	if err != nil {
		return err
	}
	var dbID int64 = -1
	for _, item := range items {
		if c.externalID(item) == externalID {
			dbID = item.ID
			break
		}
	}
	if dbID < 0 {
		return fmt.Errorf("%s %s not found in library", c.mediaType, externalID)
	}

	params := url.Values{}
	params.Set("deleteFiles", "true")
	endpoint := fmt.Sprintf("%s/%d", c.libraryEndpoint(), dbID)

	status, err := c.send(ctx, http.MethodDelete, endpoint, params, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s delete returned status %d", c.mediaType, status)
	}

	c.logger.WithFields(logrus.Fields{
		"service":     c.mediaType,
		"instance":    c.label,
		"external_id": externalID,
	}).Info("Removed from library")
	return nil
}

// RootFolders lists the backend's root folders minus the ones the
// instance config excludes.
func (c *Client) RootFolders(ctx context.Context) ([]RootFolder, error) {
	var folders []RootFolder
	if err := c.getJSON(ctx, "rootfolder", nil, &folders); err != nil {
		return nil, err
	}

	kept := folders[:0]
	for _, f := range folders {
		if !slices.Contains(c.excludedRootFolders, f.Path) {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

// QualityProfiles lists the backend's quality profiles minus the ones
// the instance config excludes.
func (c *Client) QualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	var profiles []QualityProfile
	if err := c.getJSON(ctx, "qualityprofile", nil, &profiles); err != nil {
		return nil, err
	}

	kept := profiles[:0]
	for _, p := range profiles {
		if !slices.Contains(c.excludedQualityProfiles, p.Name) {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

// Tags lists the backend's tags.
func (c *Client) Tags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := c.getJSON(ctx, "tag", nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// CreateTag creates a tag with the given label and returns its id.
func (c *Client) CreateTag(ctx context.Context, label string) (int64, error) {
	payload := map[string]interface{}{"label": label}
	body, status, err := c.sendRead(ctx, http.MethodPost, "tag", nil, payload)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return 0, fmt.Errorf("%s tag create returned status %d", c.mediaType, status)
	}

	var tag Tag
	if err := json.Unmarshal(body, &tag); err != nil {
		return 0, fmt.Errorf("failed to parse tag create response: %w", err)
	}
	return tag.ID, nil
}

// Ping checks that the backend answers its status endpoint.
func (c *Client) Ping(ctx context.Context) error {
	status, err := c.send(ctx, http.MethodGet, "system/status", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s status endpoint returned %d", c.mediaType, status)
	}
	return nil
}

// Library returns the current library listing for the "all" commands.
func (c *Client) Library(ctx context.Context) ([]LibraryItem, error) {
	items, err := c.libraryRaw(ctx)
	if err != nil {
		return nil, err
	}

	listing := make([]LibraryItem, 0, len(items))
	for _, item := range items {
		if item.Title == "" && item.ArtistName == "" {
			continue
		}
		title := item.Title
		if title == "" {
			title = item.ArtistName
		}
		listing = append(listing, LibraryItem{
			Title:     title,
			Year:      item.Year,
			Status:    item.Status,
			Monitored: item.Monitored,
		})
	}
	return listing, nil
}

// rawLibraryItem covers the library entry fields of all three
// backends; absent fields stay zero.
type rawLibraryItem struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	ArtistName      string `json:"artistName"`
	Year            int    `json:"year"`
	Status          string `json:"status"`
	Monitored       bool   `json:"monitored"`
	TmdbID          int64  `json:"tmdbId"`
	TvdbID          int64  `json:"tvdbId"`
	ForeignArtistID string `json:"foreignArtistId"`
}

func (c *Client) libraryRaw(ctx context.Context) ([]rawLibraryItem, error) {
	var items []rawLibraryItem
	if err := c.getJSON(ctx, c.libraryEndpoint(), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) libraryEndpoint() string {
	switch c.mediaType {
	case MediaTypeMovie:
		return "movie"
	case MediaTypeSeries:
		return "series"
	default:
		return "artist"
	}
}

func (c *Client) externalID(item rawLibraryItem) string {
	switch c.mediaType {
	case MediaTypeMovie:
		return fmt.Sprintf("%d", item.TmdbID)
	case MediaTypeSeries:
		return fmt.Sprintf("%d", item.TvdbID)
	default:
		return item.ForeignArtistID
	}
}

// apiURL assembles the full request URL with the apikey parameter.
func (c *Client) apiURL(endpoint string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)
	return c.baseURL + c.apiPath + endpoint + "?" + params.Encode()
}

// getJSON performs a GET and decodes the body. Any non-200 status is
// an error; callers treat read errors as "no data".
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, v interface{}) error {
	body, status, err := c.sendRead(ctx, http.MethodGet, endpoint, params, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s %s returned status %d", c.mediaType, endpoint, status)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}
	return nil
}

// send performs a request and returns only the status code.
func (c *Client) send(ctx context.Context, method, endpoint string, params url.Values, payload interface{}) (int, error) {
	_, status, err := c.sendRead(ctx, method, endpoint, params, payload)
	return status, err
}

func (c *Client) sendRead(ctx context.Context, method, endpoint string, params url.Values, payload interface{}) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL(endpoint, params), reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "chatarr/1.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s request failed: %w", c.mediaType, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}
