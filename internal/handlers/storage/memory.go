package storage

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/umbra-labs/x402-gateway/internal/adapters/embeddings"
	"github.com/umbra-labs/x402-gateway/internal/registry"
	"github.com/umbra-labs/x402-gateway/internal/safety"
	"github.com/umbra-labs/x402-gateway/internal/shard"
)

type memoryStoreItem struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding"`
	Metadata  string    `json:"metadata"`
}

type memoryStoreRequest struct {
	Items []memoryStoreItem `json:"items"`
}

// MemoryStore handles POST /storage/memory/store. When an item omits its
// embedding, embedder computes one from Text before the shard write; when
// scanner is configured, a fire-and-forget scan is also scheduled.
func (h *Handlers) MemoryStore(embedder *embeddings.Client, scanner *safety.Scanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sh, ok := registry.ShardFor(w, r, h.shards)
		if !ok {
			return
		}
		var req memoryStoreRequest
		if err := registry.DecodeBody(r, &req); err != nil {
			registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}

		if embedder != nil {
			var toEmbed []string
			var indices []int
			for i, item := range req.Items {
				if len(item.Embedding) == 0 {
					toEmbed = append(toEmbed, item.Text)
					indices = append(indices, i)
				}
			}
			if len(toEmbed) > 0 {
				vectors, err := embedder.Embed(r.Context(), toEmbed)
				if err != nil {
					registry.WriteError(w, r, http.StatusBadGateway, "embedding failed: "+err.Error(), nil)
					return
				}
				for j, idx := range indices {
					req.Items[idx].Embedding = vectors[j]
				}
			}
		}

		items := make([]shard.MemoryItem, len(req.Items))
		for i, item := range req.Items {
			items[i] = shard.MemoryItem{ID: item.ID, Text: item.Text, Embedding: item.Embedding, Metadata: item.Metadata}
		}
		if err := sh.MemoryStore(items); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, shard.ErrInvalidInput) {
				status = http.StatusBadRequest
			}
			registry.WriteError(w, r, status, err.Error(), nil)
			return
		}

		if scanner != nil {
			for _, item := range req.Items {
				scanner.Schedule(sh, item.ID, shard.ContentMemory, item.Text)
			}
		}

		registry.WriteOK(w, r, map[string]any{"stored": len(req.Items)})
	}
}

type memorySearchRequest struct {
	QueryEmbedding []float64 `json:"queryEmbedding"`
	Limit          int       `json:"limit"`
	Threshold      float64   `json:"threshold"`
}

// MemorySearch handles POST /storage/memory/search.
func (h *Handlers) MemorySearch(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	var req memorySearchRequest
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	results, err := sh.MemorySearch(req.QueryEmbedding, shard.MemorySearchOptions{Limit: req.Limit, Threshold: req.Threshold})
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"results": results})
}

type memoryDeleteRequest struct {
	IDs []string `json:"ids"`
}

// MemoryDelete handles POST /storage/memory/delete.
func (h *Handlers) MemoryDelete(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	var req memoryDeleteRequest
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	deleted, err := sh.MemoryDelete(req.IDs)
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"deleted": deleted})
}

// MemoryList handles GET /storage/memory/list.
func (h *Handlers) MemoryList(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	items, err := sh.MemoryList(parseIntQuery(r, "limit", 100), parseIntQuery(r, "offset", 0))
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"items": items})
}

// MemoryClear handles POST /storage/memory/clear.
func (h *Handlers) MemoryClear(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	if err := sh.MemoryClear(); err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"cleared": true})
}

func parseIntQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
