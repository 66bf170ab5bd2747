package storage

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/umbra-labs/x402-gateway/internal/registry"
	"github.com/umbra-labs/x402-gateway/internal/safety"
	"github.com/umbra-labs/x402-gateway/internal/shard"
)

type pasteCreateRequest struct {
	Content  string `json:"content"`
	Title    string `json:"title"`
	Language string `json:"language"`
	TTLSecs  *int64 `json:"ttlSeconds"`
}

// PasteCreate handles POST /storage/paste. When scanner is configured, it
// schedules a fire-and-forget content scan that never delays this response.
func (h *Handlers) PasteCreate(scanner *safety.Scanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sh, ok := registry.ShardFor(w, r, h.shards)
		if !ok {
			return
		}
		var req pasteCreateRequest
		if err := registry.DecodeBody(r, &req); err != nil {
			registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}

		opts := shard.PasteCreateOptions{Title: req.Title, Language: req.Language}
		if req.TTLSecs != nil {
			ttl := time.Duration(*req.TTLSecs) * time.Second
			opts.TTL = &ttl
		}

		id, err := sh.PasteCreate(req.Content, opts)
		if err != nil {
			registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
			return
		}

		if scanner != nil {
			scanner.Schedule(sh, id, shard.ContentPaste, req.Content)
		}

		registry.WriteOK(w, r, map[string]any{"id": id})
	}
}

// PasteGet handles GET /storage/paste/{id}.
func (h *Handlers) PasteGet(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	paste, err := sh.PasteGet(id)
	if err == shard.ErrNotFound {
		registry.WriteError(w, r, http.StatusNotFound, "paste not found", nil)
		return
	}
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{
		"id": paste.ID, "content": paste.Content, "title": paste.Title,
		"language": paste.Language, "createdAt": paste.CreatedAt, "expiresAt": paste.ExpiresAt,
	})
}

// PasteDelete handles DELETE /storage/paste/{id}.
func (h *Handlers) PasteDelete(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	deleted, err := sh.PasteDelete(id)
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"deleted": deleted})
}
