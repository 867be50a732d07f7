// Package transmission toggles the alternate ("turtle") speed limits
// of a Transmission daemon over its RPC interface.
package transmission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chatarr/chatarr/internal/config"
)

const sessionIDHeader = "X-Transmission-Session-Id"

// Client is a minimal Transmission RPC client.
type Client struct {
	rpcURL     string
	username   string
	password   string
	sessionID  string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a client for the configured Transmission daemon.
func NewClient(cfg config.SpeedClient, logger *logrus.Logger) *Client {
	return &Client{
		rpcURL:   cfg.Server.URL() + "transmission/rpc",
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SetAltSpeed enables or disables the alternate speed limits.
func (c *Client) SetAltSpeed(ctx context.Context, enabled bool) error {
	args := map[string]interface{}{"alt-speed-enabled": enabled}
	if err := c.call(ctx, "session-set", args); err != nil {
		return fmt.Errorf("failed to set alternate speed: %w", err)
	}

	c.logger.WithField("alt_speed", enabled).Info("Transmission speed mode changed")
	return nil
}

type rpcRequest struct {
	Method    string                 `json:"method"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

type rpcResponse struct {
	Result string `json:"result"`
}

// call performs one RPC round trip, retrying once on the 409 session
// handshake the daemon uses to hand out its session id.
func (c *Client) call(ctx context.Context, method string, args map[string]interface{}) error {
	body, err := json.Marshal(rpcRequest{Method: method, Arguments: args})
	if err != nil {
		return fmt.Errorf("failed to encode RPC request: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create RPC request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.sessionID != "" {
			req.Header.Set(sessionIDHeader, c.sessionID)
		}
		if c.username != "" {
			req.SetBasicAuth(c.username, c.password)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("RPC request failed: %w", err)
		}

		if resp.StatusCode == http.StatusConflict {
			c.sessionID = resp.Header.Get(sessionIDHeader)
			resp.Body.Close()
			continue
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read RPC response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("RPC returned status %d", resp.StatusCode)
		}

		var parsed rpcResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return fmt.Errorf("failed to parse RPC response: %w", err)
		}
		if parsed.Result != "success" {
			return fmt.Errorf("RPC returned result %q", parsed.Result)
		}
		return nil
	}
	return fmt.Errorf("RPC session handshake did not settle")
}
