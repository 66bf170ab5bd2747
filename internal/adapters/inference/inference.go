// Package inference is the OpenAI-compatible chat-completion client used
// by the dynamic /inference/openrouter/chat and standard
// /inference/cloudflare/chat endpoints, and implements
// internal/modelcatalog.Fetcher against each provider's model-listing
// endpoint.
//
// Adapted from the teacher gateway's x402.RemoteFacilitator post() helper
// (same request/log/decode shape), generalized to a chat-completion body
// instead of a settlement body.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/umbra-labs/x402-gateway/internal/modelcatalog"
	"github.com/umbra-labs/x402-gateway/internal/pricing"
)

// Client talks to one OpenAI-compatible provider (OpenRouter or Cloudflare
// Workers AI).
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// New builds a Client targeting baseURL, authenticating with apiKey.
func New(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: &http.Client{Timeout: timeout}, logger: logger}
}

// ChatChoice is one completion choice.
type ChatChoice struct {
	Index   int               `json:"index"`
	Message pricing.ChatMessage `json:"message"`
}

// ChatCompletionResponse is an OpenAI-compatible chat completion result.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// ChatCompletion forwards req to the provider's /chat/completions endpoint.
// The request is always sent with Stream forced to false, whatever the
// caller passed.
func (c *Client) ChatCompletion(ctx context.Context, req pricing.ChatRequest) (*ChatCompletionResponse, error) {
	req.Stream = false
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshalling chat request: %w", err)
	}

	var resp ChatCompletionResponse
	if err := c.post(ctx, "/chat/completions", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type modelListResponse struct {
	Data []struct {
		ID     string `json:"id"`
		Pricing *struct {
			Prompt     string `json:"prompt"`
			Completion string `json:"completion"`
		} `json:"pricing"`
	} `json:"data"`
}

// FetchModelPrices implements modelcatalog.Fetcher against the provider's
// /models listing.
func (c *Client) FetchModelPrices(ctx context.Context) (map[string]modelcatalog.RawModelPrice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("building models request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching models: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading models response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("models endpoint returned %d: %s", resp.StatusCode, raw)
	}

	var parsed modelListResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoding models response: %w", err)
	}

	out := make(map[string]modelcatalog.RawModelPrice, len(parsed.Data))
	for _, m := range parsed.Data {
		if m.Pricing == nil {
			continue
		}
		var promptPerK, completionPerK float64
		fmt.Sscanf(m.Pricing.Prompt, "%g", &promptPerK)
		fmt.Sscanf(m.Pricing.Completion, "%g", &completionPerK)
		out[m.ID] = modelcatalog.RawModelPrice{
			PromptPerK:     promptPerK * 1000,
			CompletionPerK: completionPerK * 1000,
		}
	}
	return out, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) post(ctx context.Context, path string, body []byte, dst any) error {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading inference response: %w", err)
	}
	c.logger.Debug("inference response", "url", url, "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("inference provider returned %d: %s", resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, dst); err != nil {
		return fmt.Errorf("decoding inference response: %w", err)
	}
	return nil
}
