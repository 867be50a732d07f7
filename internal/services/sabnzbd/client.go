// Package sabnzbd adjusts the global speed limit of a SABnzbd server
// through its HTTP API.
package sabnzbd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chatarr/chatarr/internal/config"
)

// Client is a minimal SABnzbd API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a client for the configured SABnzbd server.
func NewClient(cfg config.SpeedClient, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: cfg.Server.URL(),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SetSpeedLimit sets the global speed limit as a percentage of the
// configured line speed. Success is HTTP 200, nothing else.
func (c *Client) SetSpeedLimit(ctx context.Context, percent int) error {
	params := url.Values{}
	params.Set("output", "json")
	params.Set("mode", "config")
	params.Set("name", "speedlimit")
	params.Set("value", fmt.Sprintf("%d", percent))
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"api?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("speed limit request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("speed limit request returned status %d", resp.StatusCode)
	}

	c.logger.WithField("percent", percent).Info("SABnzbd speed limit changed")
	return nil
}
