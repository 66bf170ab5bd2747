package registry

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/umbra-labs/x402-gateway/internal/reqctx"
	"github.com/umbra-labs/x402-gateway/internal/shard"
)

// DecodeBody parses r's JSON body into dst, returning a typed error the
// caller can surface as a 400.
func DecodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}

// WriteError emits the gateway's uniform error envelope.
func WriteError(w http.ResponseWriter, r *http.Request, status int, errMsg string, extra map[string]any) {
	body := map[string]any{
		"ok":        false,
		"tokenType": reqctx.TokenType(r.Context()),
		"error":     errMsg,
	}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteOK emits a successful JSON response, merging "ok":true and the
// payer's tokenType into body.
func WriteOK(w http.ResponseWriter, r *http.Request, body map[string]any) {
	body["ok"] = true
	body["tokenType"] = reqctx.TokenType(r.Context())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// Payer returns the authenticated payer address bound by the payment
// middleware, or "" if called on an unauthenticated request.
func Payer(r *http.Request) string {
	return reqctx.Payer(r.Context())
}

// ShardFor fails with a 500 rather than panicking if called without an
// authenticated context — the dispatcher guarantees every priced handler
// runs after payer identity is bound, so this should never trigger in
// practice.
func ShardFor(w http.ResponseWriter, r *http.Request, mgr *shard.Manager) (*shard.Shard, bool) {
	payer := Payer(r)
	if payer == "" {
		WriteError(w, r, http.StatusInternalServerError, "no authenticated payer bound to request", nil)
		return nil, false
	}
	sh, err := mgr.Get(payer)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "shard unavailable: "+err.Error(), nil)
		return nil, false
	}
	return sh, true
}
