// Package modelcatalog implements the opportunistic, TTL-bounded model
// price snapshot used by dynamic pricing: single-flight refresh, atomic
// replace on success, and failure backoff, mirroring the teacher's
// sync.Mutex-guarded map pattern (x402/middleware.go's seenPayments) scaled
// up to a lock-free read path over an atomic.Pointer snapshot.
package modelcatalog

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/umbra-labs/x402-gateway/internal/pricing"
)

// RawModelPrice is the unvalidated per-1k-token USD price as parsed from the
// upstream model list — plain float64 because upstream JSON can legally
// contain NaN-producing garbage (division by zero upstream, etc.) that must
// be filtered before it becomes a decimal.Decimal.
type RawModelPrice struct {
	PromptPerK     float64
	CompletionPerK float64
}

const (
	// TTL is how long a successful snapshot is trusted before a refresh is
	// attempted again.
	TTL = time.Hour
	// RetryBackoff is the cooldown after a failed refresh before another is
	// attempted.
	RetryBackoff = 30 * time.Second
	// RefreshTimeout is the hard ceiling on one refresh attempt.
	RefreshTimeout = 3 * time.Second
)

// Snapshot is one atomically-replaced view of upstream model pricing.
type Snapshot struct {
	Prices      map[string]pricing.ModelPricing
	RefreshedAt time.Time
}

// Fetcher retrieves a fresh snapshot from the upstream model list provider.
// Implemented by an adapters/inference client.
type Fetcher interface {
	FetchModelPrices(ctx context.Context) (map[string]RawModelPrice, error)
}

// Cache is the process-global opportunistic model price cache. The zero
// value is not usable; construct with New.
type Cache struct {
	fetcher Fetcher
	logger  *slog.Logger

	snapshot atomic.Pointer[Snapshot]

	mu          sync.Mutex
	lastFailure time.Time

	group singleflight.Group
}

// New builds a Cache around fetcher. logger may be nil.
func New(fetcher Fetcher, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{fetcher: fetcher, logger: logger}
}

// Lookup returns pricing for model, triggering a background-ineligible
// (i.e. caller-blocking, single-flight) refresh first if one is due.
// A Valid result with nil Pricing means "cache empty or refresh failed —
// caller must fall back"; Valid=false means the model is known-invalid.
func (c *Cache) Lookup(model string) pricing.CatalogLookup {
	c.maybeRefresh(context.Background())

	snap := c.snapshot.Load()
	if snap == nil {
		return pricing.CatalogLookup{Valid: true, Pricing: nil}
	}
	if p, ok := snap.Prices[model]; ok {
		pc := p
		return pricing.CatalogLookup{Valid: true, Pricing: &pc}
	}
	// Any populated snapshot, fresh or stale, is authoritative: an absent
	// model is reported invalid so the dynamic estimator rejects it rather
	// than silently falling back.
	return pricing.CatalogLookup{Valid: false}
}

// maybeRefresh triggers a refresh when the cache is empty, stale past TTL,
// and not within the post-failure backoff window. Concurrent callers share
// one in-flight refresh via singleflight.
func (c *Cache) maybeRefresh(ctx context.Context) {
	snap := c.snapshot.Load()
	needsRefresh := snap == nil || time.Since(snap.RefreshedAt) > TTL

	if !needsRefresh {
		return
	}

	c.mu.Lock()
	inBackoff := !c.lastFailure.IsZero() && time.Since(c.lastFailure) < RetryBackoff
	c.mu.Unlock()
	if inBackoff {
		return
	}

	_, _, _ = c.group.Do("refresh", func() (any, error) {
		c.refresh(ctx)
		return nil, nil
	})
}

func (c *Cache) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, RefreshTimeout)
	defer cancel()

	prices, err := c.fetcher.FetchModelPrices(ctx)
	if err != nil {
		c.logger.Warn("model catalog refresh failed", "err", err)
		c.mu.Lock()
		c.lastFailure = time.Now()
		c.mu.Unlock()
		return
	}

	cleaned := make(map[string]pricing.ModelPricing, len(prices))
	for model, raw := range prices {
		if !finite(raw.PromptPerK) || !finite(raw.CompletionPerK) {
			continue
		}
		if raw.PromptPerK < 0 || raw.CompletionPerK < 0 {
			continue
		}
		cleaned[model] = pricing.ModelPricing{
			PromptPerK:     decimal.NewFromFloat(raw.PromptPerK),
			CompletionPerK: decimal.NewFromFloat(raw.CompletionPerK),
		}
	}

	c.snapshot.Store(&Snapshot{Prices: cleaned, RefreshedAt: time.Now()})
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
