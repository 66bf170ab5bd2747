package storage

import (
	"net/http"

	"github.com/umbra-labs/x402-gateway/internal/registry"
	"github.com/umbra-labs/x402-gateway/internal/shard"
)

type queuePushRequest struct {
	Queue    string   `json:"queue"`
	Items    []string `json:"items"`
	Priority int      `json:"priority"`
}

// QueuePush handles POST /storage/queue/push.
func (h *Handlers) QueuePush(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	var req queuePushRequest
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := sh.Push(req.Queue, req.Items, shard.QueuePushOptions{Priority: req.Priority}); err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"pushed": len(req.Items)})
}

type queueCountRequest struct {
	Queue string `json:"queue"`
	Count int    `json:"count"`
}

// QueuePop handles POST /storage/queue/pop.
func (h *Handlers) QueuePop(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	var req queueCountRequest
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	items, err := sh.Pop(req.Queue, req.Count)
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"items": items})
}

// QueuePeek handles POST /storage/queue/peek.
func (h *Handlers) QueuePeek(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	var req queueCountRequest
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	items, err := sh.Peek(req.Queue, req.Count)
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"items": items})
}

// QueueStatus handles GET /storage/queue/status.
func (h *Handlers) QueueStatus(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	queue := r.URL.Query().Get("queue")
	status, err := sh.QueueStatus(queue)
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{
		"pending": status.Pending, "processing": status.Processing, "done": status.Done,
	})
}

type queueClearRequest struct {
	Queue  string `json:"queue"`
	Status string `json:"status"`
}

// QueueClear handles POST /storage/queue/clear.
func (h *Handlers) QueueClear(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	var req queueClearRequest
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	n, err := sh.Clear(req.Queue, req.Status)
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"cleared": n})
}
