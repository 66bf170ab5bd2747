// Package relay is the thin client for the external x402 settlement relay,
// adapted from the teacher gateway's x402.RemoteFacilitator
// (kshinn-umbra-gateway/gateway/x402/facilitator.go): same post() helper
// shape and *http.Client construction, collapsed from two calls
// (verify + settle) into the single settle-and-report-payer call spec.md's
// state machine expects of its one SETTLE state.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/umbra-labs/x402-gateway/internal/x402"
)

// Client settles a signed payment payload against the external relay.
type Client interface {
	Settle(ctx context.Context, payload json.RawMessage, requirements []x402.PaymentRequirement) (*x402.SettlementResult, error)
}

// HTTPClient talks to an x402-compatible settlement relay over HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New builds an HTTPClient targeting baseURL, with timeout applied per call.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type settleRequest struct {
	X402Version  int                          `json:"x402Version"`
	Payload      json.RawMessage              `json:"paymentPayload"`
	Requirements []x402.PaymentRequirement    `json:"paymentRequirements"`
}

type settleResponse struct {
	Success     bool   `json:"success"`
	Transaction string `json:"transaction"`
	Payer       string `json:"payer"`
	ErrorReason string `json:"errorReason"`
}

// Settle posts payload and requirements to the relay's /settle endpoint and
// returns its authoritative verdict. The relay — not this client — decides
// validity, chain submission, and payer identity.
func (c *HTTPClient) Settle(ctx context.Context, payload json.RawMessage, requirements []x402.PaymentRequirement) (*x402.SettlementResult, error) {
	body, err := json.Marshal(settleRequest{
		X402Version:  x402.ProtocolVersion,
		Payload:      payload,
		Requirements: requirements,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling settle request: %w", err)
	}

	var resp settleResponse
	if err := c.post(ctx, "/settle", body, &resp); err != nil {
		return nil, err
	}

	return &x402.SettlementResult{
		Success:     resp.Success,
		Transaction: resp.Transaction,
		Payer:       resp.Payer,
		ErrorReason: resp.ErrorReason,
	}, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body []byte, dst any) error {
	url := c.baseURL + path
	c.logger.Debug("relay request", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading relay response: %w", err)
	}
	c.logger.Debug("relay response", "url", url, "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("relay returned %d: %s", resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, dst); err != nil {
		return fmt.Errorf("decoding relay response: %w", err)
	}
	return nil
}
