// Package stacks is the thin wrapper around an external blockchain-lookup
// provider backing the GET /stacks/profile/{address} endpoint. Address
// decoding and signature verification are local (internal/stacksaddr) and
// do not use this adapter. Balance is exposed here but no endpoint calls it.
package stacks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client wraps a blockchain-lookup HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// New builds a Client targeting baseURL, authenticating with apiKey when set.
func New(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: &http.Client{Timeout: timeout}, logger: logger}
}

// AccountBalance is the balance lookup result for one address.
type AccountBalance struct {
	STXBalance string `json:"stx_balance"`
	Nonce      uint64 `json:"nonce"`
}

// Balance fetches address's current on-chain balance and nonce.
func (c *Client) Balance(ctx context.Context, address string) (*AccountBalance, error) {
	var bal AccountBalance
	if err := c.get(ctx, "/extended/v1/address/"+address+"/balances", &bal); err != nil {
		return nil, err
	}
	return &bal, nil
}

// Profile is a richer account summary used by /stacks/profile.
type Profile struct {
	Address      string `json:"address"`
	Balance      string `json:"balance"`
	TxCount      int    `json:"tx_count"`
	LastActivity int64  `json:"last_activity"`
}

// Profile fetches the profile summary for address.
func (c *Client) Profile(ctx context.Context, address string) (*Profile, error) {
	var p Profile
	if err := c.get(ctx, "/extended/v1/address/"+address+"/profile", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building stacks lookup request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("stacks lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading stacks lookup response: %w", err)
	}
	c.logger.Debug("stacks lookup response", "url", url, "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("stacks lookup returned %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decoding stacks lookup response: %w", err)
	}
	return nil
}
