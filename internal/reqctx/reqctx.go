// Package reqctx carries the per-request correlation id, logger, and
// payment-derived identity through a request's context.Context.
package reqctx

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"
)

type ctxKey int

const (
	correlationIDKey ctxKey = iota
	loggerKey
	payerKey
	tokenKey
	estimateKey
	bodyKey
)

// CorrelationHeader is the inbound/outbound header carrying the correlation id.
const CorrelationHeader = "X-Correlation-Id"

// WithCorrelationID injects a correlation id into ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the correlation id bound to ctx, or "" if none.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// WithLogger binds a child logger to ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// Logger returns the logger bound to ctx, falling back to slog.Default().
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// WithPayer binds the authoritative payer address to ctx.
func WithPayer(ctx context.Context, payer string) context.Context {
	return context.WithValue(ctx, payerKey, payer)
}

// Payer returns the payer address bound to ctx, or "" if the request was
// never authenticated by the payment state machine.
func Payer(ctx context.Context) string {
	p, _ := ctx.Value(payerKey).(string)
	return p
}

// WithTokenType binds the selected token kind name to ctx.
func WithTokenType(ctx context.Context, tokenType string) context.Context {
	return context.WithValue(ctx, tokenKey, tokenType)
}

// TokenType returns the selected token kind name bound to ctx.
func TokenType(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

// WithEstimate binds the derived PriceEstimate to ctx. The value is stored
// as `any` to avoid reqctx depending on the pricing package; callers assert
// the concrete type.
func WithEstimate(ctx context.Context, estimate any) context.Context {
	return context.WithValue(ctx, estimateKey, estimate)
}

// Estimate returns the PriceEstimate bound by WithEstimate, if any.
func Estimate(ctx context.Context) (any, bool) {
	v := ctx.Value(estimateKey)
	return v, v != nil
}

// WithParsedBody caches a dynamic endpoint's once-parsed request body.
func WithParsedBody(ctx context.Context, body any) context.Context {
	return context.WithValue(ctx, bodyKey, body)
}

// ParsedBody returns the cached body set by WithParsedBody, if any.
func ParsedBody(ctx context.Context) (any, bool) {
	v := ctx.Value(bodyKey)
	return v, v != nil
}

// CorrelationMiddleware tags every request with a correlation id (reusing
// an inbound header if present) and a bound logger, before anything else runs.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if id == "" {
			id = uuid.New().String()
		}
		logger := slog.Default().With("correlation_id", id)
		ctx := WithLogger(WithCorrelationID(r.Context(), id), logger)
		w.Header().Set(CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RecoverMiddleware installs the top-level panic guard: a handler panic
// becomes a 500 with the correlation id, logged with its stack, instead of
// tearing down the process.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				id := CorrelationID(r.Context())
				Logger(r.Context()).Error("panic recovered",
					"panic", rec, "stack", string(debug.Stack()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"ok":false,"error":"internal_error","correlationId":"` + id + `"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
