// Package storage implements the per-payer storage endpoints: KV, paste,
// SQL sandbox, distributed lock, queue, and vector memory. Every handler
// resolves its shard via registry.ShardFor and never holds a shard call
// across an external network call, per spec.md §5.
package storage

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/umbra-labs/x402-gateway/internal/registry"
	"github.com/umbra-labs/x402-gateway/internal/shard"
)

// Handlers groups every storage endpoint with its shared dependencies.
type Handlers struct {
	shards *shard.Manager
}

// New builds Handlers backed by shards.
func New(shards *shard.Manager) *Handlers {
	return &Handlers{shards: shards}
}

type kvSetRequest struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Metadata string `json:"metadata"`
	TTLSecs  *int64 `json:"ttlSeconds"`
}

// KVSet handles POST /storage/kv.
func (h *Handlers) KVSet(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	var req kvSetRequest
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	opts := shard.KVSetOptions{Metadata: req.Metadata}
	if req.TTLSecs != nil {
		ttl := time.Duration(*req.TTLSecs) * time.Second
		opts.TTL = &ttl
	}

	created, err := sh.KVSet(req.Key, req.Value, opts)
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"key": req.Key, "created": created})
}

// KVGet handles GET /storage/kv/{key}.
func (h *Handlers) KVGet(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	entry, err := sh.KVGet(key)
	if err == shard.ErrNotFound {
		registry.WriteError(w, r, http.StatusNotFound, "key not found", nil)
		return
	}
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{
		"key": entry.Key, "value": entry.Value, "metadata": entry.Metadata,
		"createdAt": entry.CreatedAt, "updatedAt": entry.UpdatedAt, "expiresAt": entry.ExpiresAt,
	})
}

// KVDelete handles DELETE /storage/kv/{key}.
func (h *Handlers) KVDelete(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	deleted, err := sh.KVDelete(key)
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"deleted": deleted})
}

// KVList handles GET /storage/kv.
func (h *Handlers) KVList(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	entries, err := sh.KVList(shard.KVListOptions{Prefix: r.URL.Query().Get("prefix")})
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"entries": entries})
}
