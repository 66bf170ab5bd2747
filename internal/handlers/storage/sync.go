package storage

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/umbra-labs/x402-gateway/internal/registry"
	"github.com/umbra-labs/x402-gateway/internal/shard"
)

type lockRequest struct {
	Name    string `json:"name"`
	TTLSecs int64  `json:"ttlSeconds"`
}

// Lock handles POST /storage/sync/lock.
func (h *Handlers) Lock(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	var req lockRequest
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	result, err := sh.Lock(req.Name, time.Duration(req.TTLSecs)*time.Second)
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{
		"acquired": result.Acquired, "token": result.Token, "expiresAt": result.ExpiresAt,
	})
}

type unlockRequest struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

// Unlock handles POST /storage/sync/unlock.
func (h *Handlers) Unlock(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	var req unlockRequest
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	err := sh.Unlock(req.Name, req.Token)
	if err == shard.ErrTokenMismatch {
		registry.WriteError(w, r, http.StatusConflict, "lock token mismatch", nil)
		return
	}
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"unlocked": true})
}

type extendRequest struct {
	Name    string `json:"name"`
	Token   string `json:"token"`
	TTLSecs int64  `json:"ttlSeconds"`
}

// Extend handles POST /storage/sync/extend.
func (h *Handlers) Extend(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	var req extendRequest
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	result, err := sh.Extend(req.Name, req.Token, time.Duration(req.TTLSecs)*time.Second)
	switch err {
	case nil:
		registry.WriteOK(w, r, map[string]any{"acquired": result.Acquired, "expiresAt": result.ExpiresAt})
	case shard.ErrNotFound:
		registry.WriteError(w, r, http.StatusNotFound, "lock not held", nil)
	case shard.ErrTokenMismatch:
		registry.WriteError(w, r, http.StatusConflict, "lock token mismatch", nil)
	default:
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
	}
}

// LockStatus handles GET /storage/sync/status/{name}.
func (h *Handlers) LockStatus(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	status, err := sh.Status(name)
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"name": status.Name, "held": status.Held, "expiresAt": status.ExpiresAt})
}

// ListLocks handles GET /storage/sync/list.
func (h *Handlers) ListLocks(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	locks, err := sh.ListLocks()
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"locks": locks})
}
