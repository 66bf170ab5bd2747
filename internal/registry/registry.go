// Package registry is the single declarative table mapping each
// (method, path) to its pricing tier, handler, and discovery metadata, and
// the dispatcher that wires it onto a chi.Router behind the Payment State
// Machine.
//
// Adapted from the teacher gateway's main.go route wiring
// (kshinn-umbra-gateway/gateway/main.go), which registers each proxy route
// and its middleware by hand; here that hand-wiring is replaced by one
// table iterated at startup so no handler can be mounted twice or mounted
// without its declared tier.
package registry

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/umbra-labs/x402-gateway/internal/pricing"
	"github.com/umbra-labs/x402-gateway/internal/reqctx"
	"github.com/umbra-labs/x402-gateway/internal/x402"
)

// Recorder receives one observation per completed request. Implemented by
// internal/metrics.Recorder.
type Recorder interface {
	Record(path, category, tokenType string, status int)
}

// Entry is one priced or free route.
type Entry struct {
	Method      string
	Path        string
	Tier        pricing.Tier
	EstimatorID string
	Category    string
	Handler     http.HandlerFunc
	Meta        *x402.EndpointMeta
}

// Spec returns the entry's price spec for the Payment State Machine.
func (e Entry) Spec() pricing.PriceSpec {
	if e.Tier == pricing.Dynamic {
		return pricing.DynamicSpec(e.EstimatorID)
	}
	return pricing.Fixed(e.Tier)
}

// Registry is the table of every route the gateway serves.
type Registry struct {
	entries []Entry
	seen    map[string]bool
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{seen: make(map[string]bool)}
}

// Register adds entry. It panics at startup if (method, path) was already
// registered — a programmer error, not a runtime condition.
func (r *Registry) Register(entry Entry) {
	key := entry.Method + " " + entry.Path
	if r.seen[key] {
		panic(fmt.Sprintf("registry: duplicate route %s", key))
	}
	r.seen[key] = true
	r.entries = append(r.entries, entry)
}

// Entries returns every registered route.
func (r *Registry) Entries() []Entry {
	return r.entries
}

// Priced returns only the entries requiring payment (excludes Free tier).
func (r *Registry) Priced() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Tier != pricing.Free {
			out = append(out, e)
		}
	}
	return out
}

// Mount registers every entry on router, wrapping non-free entries with mw
// and, when recorder is non-nil, recording one observation per request.
func (r *Registry) Mount(router chi.Router, mw *x402.Middleware, recorder Recorder) {
	for _, entry := range r.entries {
		handler := http.Handler(entry.Handler)
		if entry.Tier != pricing.Free {
			handler = mw.Wrap(entry.Spec(), entry.Meta, handler)
		}
		if recorder != nil {
			handler = recordMetrics(recorder, entry.Path, entry.Category, handler)
		}
		router.Method(entry.Method, entry.Path, handler)
	}
}

// recordMetrics wraps next so every completed request reports its status
// and the payer's chosen token type (bound by the payment middleware before
// next runs) to recorder.
func recordMetrics(recorder Recorder, path, category string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		recorder.Record(path, category, reqctx.TokenType(r.Context()), ww.Status())
	})
}
