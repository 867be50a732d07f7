// Package qbittorrent toggles the alternative speed limits mode of a
// qBittorrent instance through its WebUI API. The WebUI only exposes a
// toggle, so the client reads the current mode first and flips it only
// when it differs from the requested one.
package qbittorrent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chatarr/chatarr/internal/config"
)

// Client is a minimal qBittorrent WebUI client.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a client for the configured qBittorrent instance.
func NewClient(cfg config.SpeedClient, logger *logrus.Logger) *Client {
	// The WebUI authenticates with a session cookie.
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL:  cfg.Server.URL(),
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		logger: logger,
	}
}

// SetAlternativeSpeed switches the alternative speed limits mode on or
// off.
func (c *Client) SetAlternativeSpeed(ctx context.Context, enabled bool) error {
	if err := c.login(ctx); err != nil {
		return err
	}

	current, err := c.alternativeSpeedEnabled(ctx)
	if err != nil {
		return err
	}
	if current == enabled {
		return nil
	}

	resp, err := c.post(ctx, "api/v2/transfer/toggleSpeedLimitsMode", nil)
	if err != nil {
		return fmt.Errorf("speed mode toggle failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("speed mode toggle returned status %d", resp.StatusCode)
	}

	c.logger.WithField("alternative", enabled).Info("qBittorrent speed mode changed")
	return nil
}

func (c *Client) login(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	resp, err := c.post(ctx, "api/v2/auth/login", form)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) alternativeSpeedEnabled(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"api/v2/transfer/speedLimitsMode", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("speed mode query failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read speed mode response: %w", err)
	}
	return strings.TrimSpace(string(body)) == "1", nil
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Referer", c.baseURL)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return c.httpClient.Do(req)
}
