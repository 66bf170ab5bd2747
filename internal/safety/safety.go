// Package safety is the fire-and-forget content-scan side channel: when a
// handler writes user-provided content, it schedules a scan here instead of
// waiting on one. The scan runs on its own goroutine and upserts its
// verdict into the owning shard; it never delays the handler response.
package safety

import (
	"context"
	"log/slog"
	"time"

	"github.com/umbra-labs/x402-gateway/internal/adapters/moderation"
	"github.com/umbra-labs/x402-gateway/internal/shard"
)

const scanTimeout = 10 * time.Second

// Scanner schedules background content scans against a moderation client.
type Scanner struct {
	classifier *moderation.Client
	logger     *slog.Logger
}

// New builds a Scanner using classifier for classification.
func New(classifier *moderation.Client, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{classifier: classifier, logger: logger}
}

// Schedule classifies content in a new goroutine and upserts the verdict
// into sh under id/contentType once it resolves. Callers must not wait on
// this: it returns immediately.
func (s *Scanner) Schedule(sh *shard.Shard, id string, contentType shard.ContentType, content string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
		defer cancel()

		verdict := s.classifier.Classify(ctx, content)
		if err := sh.ScanStore(id, contentType, verdict.Safe, verdict.Confidence, verdict.Reason); err != nil {
			s.logger.Warn("content scan upsert failed", "id", id, "error", err)
		}
	}()
}
