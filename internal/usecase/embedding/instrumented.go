package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/topicrag/internal/domain"
	"github.com/kailas-cloud/topicrag/internal/metrics"
)

// BudgetChecker enforces the token budget around each embedding call.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedEmbedder adds budget enforcement and logging to an Embedder.
// Request, latency and token metrics belong to the transport layer.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. budget may be nil.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
		logger:   logger,
	}
}

// Embed checks the budget, delegates, then records the tokens spent.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	log := p.logger.With(zap.String("provider", p.provider), zap.String("model", p.model))

	if p.budget != nil {
		if err := p.budget.Check(ctx); err != nil {
			log.Error("Embedding budget exhausted", zap.Error(err))
			return domain.EmbeddingResult{}, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	res, err := p.inner.Embed(ctx, text)
	elapsed := time.Since(start)
	if err != nil {
		log.Error("Query embedding failed", zap.Duration("duration", elapsed), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	if p.budget != nil && res.TotalTokens > 0 {
		p.budget.Record(int64(res.TotalTokens))
		metrics.EmbeddingBudgetTokensRemaining.WithLabelValues(p.provider, "daily").
			Set(float64(p.budget.RemainingDaily()))
		metrics.EmbeddingBudgetTokensRemaining.WithLabelValues(p.provider, "monthly").
			Set(float64(p.budget.RemainingMonthly()))
	}

	log.Debug("Query embedded",
		zap.Duration("duration", elapsed),
		zap.Int("dimensions", len(res.Embedding)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through decorator
	}
	return nil
}
