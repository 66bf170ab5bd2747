package storage

import (
	"net/http"

	"github.com/umbra-labs/x402-gateway/internal/registry"
)

type sqlRequest struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// Query handles POST /storage/db/query.
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	var req sqlRequest
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	result, err := sh.Query(req.SQL, req.Params)
	if err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{
		"rows": result.Rows, "rowCount": result.RowCount, "columns": result.Columns,
	})
}

// Execute handles POST /storage/db/execute.
func (h *Handlers) Execute(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	var req sqlRequest
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	rowsAffected, err := sh.Execute(req.SQL, req.Params)
	if err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"rowsAffected": rowsAffected})
}

// Schema handles GET /storage/db/schema.
func (h *Handlers) Schema(w http.ResponseWriter, r *http.Request) {
	sh, ok := registry.ShardFor(w, r, h.shards)
	if !ok {
		return
	}
	tables, err := sh.Schema()
	if err != nil {
		registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"tables": tables})
}
