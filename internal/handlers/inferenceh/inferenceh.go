// Package inferenceh implements the chat-completion endpoints:
// POST /inference/openrouter/chat (dynamic tier) and
// POST /inference/cloudflare/chat (standard tier). The dynamic-tier endpoint
// reuses the body the payment middleware already parsed for price
// estimation; the standard-tier endpoint, whose body the middleware does not
// parse, decodes it in the handler.
package inferenceh

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/umbra-labs/x402-gateway/internal/adapters/inference"
	"github.com/umbra-labs/x402-gateway/internal/pricing"
	"github.com/umbra-labs/x402-gateway/internal/registry"
	"github.com/umbra-labs/x402-gateway/internal/reqctx"
)

// Handlers groups the chat-completion endpoints with their provider clients.
type Handlers struct {
	openRouter *inference.Client
	cloudflare *inference.Client
}

// New builds Handlers backed by the two provider clients.
func New(openRouter, cloudflare *inference.Client) *Handlers {
	return &Handlers{openRouter: openRouter, cloudflare: cloudflare}
}

// OpenRouterChat handles POST /inference/openrouter/chat.
func (h *Handlers) OpenRouterChat(w http.ResponseWriter, r *http.Request) {
	h.chat(w, r, h.openRouter)
}

// CloudflareChat handles POST /inference/cloudflare/chat.
func (h *Handlers) CloudflareChat(w http.ResponseWriter, r *http.Request) {
	h.chat(w, r, h.cloudflare)
}

// Models handles the free GET /{provider}/models listing, proxying the
// provider's own model/pricing catalog unpriced so callers can choose a
// model before spending on a chat completion.
func (h *Handlers) Models(w http.ResponseWriter, r *http.Request) {
	var client *inference.Client
	switch chi.URLParam(r, "provider") {
	case "openrouter":
		client = h.openRouter
	case "cloudflare":
		client = h.cloudflare
	default:
		registry.WriteError(w, r, http.StatusNotFound, "unknown inference provider", nil)
		return
	}

	prices, err := client.FetchModelPrices(r.Context())
	if err != nil {
		registry.WriteError(w, r, http.StatusBadGateway, "inference provider error: "+err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"models": prices})
}

func (h *Handlers) chat(w http.ResponseWriter, r *http.Request, client *inference.Client) {
	var req pricing.ChatRequest
	raw, ok := reqctx.ParsedBody(r.Context())
	if !ok {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			registry.WriteError(w, r, http.StatusBadRequest, fmt.Sprintf("malformed request body: %v", err), nil)
			return
		}
	} else {
		body, ok := raw.(json.RawMessage)
		if !ok {
			registry.WriteError(w, r, http.StatusInternalServerError, "parsed request body has unexpected type", nil)
			return
		}
		if err := json.Unmarshal(body, &req); err != nil {
			registry.WriteError(w, r, http.StatusBadRequest, fmt.Sprintf("malformed request body: %v", err), nil)
			return
		}
	}

	resp, err := client.ChatCompletion(r.Context(), req)
	if err != nil {
		registry.WriteError(w, r, http.StatusBadGateway, "inference provider error: "+err.Error(), nil)
		return
	}

	registry.WriteOK(w, r, map[string]any{"completion": resp})
}
