// Package moderation is the content-safety classifier client used by the
// Safety Scan Side Channel (spec.md §4.4's integration note, §9 "async
// side channels"). It never blocks a handler response: callers run it in a
// goroutine and fall back to a default-safe verdict on any failure.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const systemPrompt = `You are a content safety classifier. Given the user content, respond with strict JSON only: {"safe": boolean, "confidence": number between 0 and 1, "reason": string}. Do not include any other text.`

// Client wraps an LLM-backed moderation classifier reachable through an
// OpenAI-compatible chat endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	logger  *slog.Logger
}

// New builds a Client targeting baseURL with the given classifier model.
func New(baseURL, apiKey, model string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, model: model, http: &http.Client{Timeout: timeout}, logger: logger}
}

// Verdict is the classifier's opinion on one piece of content.
type Verdict struct {
	Safe       bool    `json:"safe"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// DefaultSafe is the verdict stored whenever classification fails, per
// spec.md §4.4: "safe=true, confidence=0, reason=scan_unavailable".
func DefaultSafe() Verdict {
	return Verdict{Safe: true, Confidence: 0, Reason: "scan_unavailable"}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Classify scores content for safety. On any transport or parse failure it
// returns DefaultSafe() rather than an error — this side channel must
// never propagate failure back to the caller's response path.
func (c *Client) Classify(ctx context.Context, content string) Verdict {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: content},
		},
		Temperature: 0,
	})
	if err != nil {
		c.logger.Warn("moderation request marshal failed", "error", err)
		return DefaultSafe()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("moderation request build failed", "error", err)
		return DefaultSafe()
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("moderation request failed", "error", err)
		return DefaultSafe()
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode >= 400 {
		c.logger.Warn("moderation response unusable", "status", resp.StatusCode, "error", err)
		return DefaultSafe()
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		c.logger.Warn("moderation response malformed", "error", err)
		return DefaultSafe()
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &verdict); err != nil {
		c.logger.Warn("moderation verdict parse failed", "error", err)
		return DefaultSafe()
	}

	if verdict.Confidence < 0 {
		verdict.Confidence = 0
	}
	if verdict.Confidence > 1 {
		verdict.Confidence = 1
	}
	return verdict
}
