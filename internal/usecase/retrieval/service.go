package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/topicrag/internal/domain"
	"github.com/kailas-cloud/topicrag/internal/domain/corpus"
	"github.com/kailas-cloud/topicrag/internal/domain/search/request"
	"github.com/kailas-cloud/topicrag/internal/domain/search/result"
)

// Retrieval is the outcome of one retrieval call.
type Retrieval struct {
	Results []result.Result
	// Topic is the filter actually applied; empty when the full corpus was searched.
	Topic string
	// FallbackUsed is true when a topic was requested but the full corpus was searched.
	FallbackUsed bool
}

// Service turns a query and an optional topic into ranked passages.
// It holds no mutable state; concurrent calls are independent.
type Service struct {
	corpus  *corpus.Corpus
	ranker  Ranker
	embed   Embedder
	limits  domain.RetrievalConfig
	observe Observer
}

// New creates a retrieval service over an immutable corpus.
func New(c *corpus.Corpus, r Ranker, embed Embedder) *Service {
	return &Service{
		corpus: c,
		ranker: r,
		embed:  embed,
		limits: domain.DefaultRetrievalConfig(),
	}
}

// WithLimits overrides the default and maximum top-K.
func (s *Service) WithLimits(cfg domain.RetrievalConfig) *Service {
	if cfg.DefaultTopK > 0 {
		s.limits.DefaultTopK = cfg.DefaultTopK
	}
	if cfg.MaxTopK > 0 {
		s.limits.MaxTopK = cfg.MaxTopK
	}
	return s
}

// WithObserver attaches a metrics observer.
func (s *Service) WithObserver(o Observer) *Service {
	s.observe = o
	return s
}

// Topics returns the distinct corpus topics.
func (s *Service) Topics() []string { return s.corpus.DistinctTopics() }

// RecordCount returns the corpus size.
func (s *Service) RecordCount() int { return s.corpus.RecordCount() }

// DefaultTopK returns the top-K used when callers pass zero.
func (s *Service) DefaultTopK() int { return s.limits.DefaultTopK }

// Retrieve ranks corpus passages for query.
//
// A topic that is empty, unknown, or selects no records falls back to the
// full corpus: a filter never turns a non-empty answer into an empty one.
// topK <= 0 selects the default; values above the maximum are capped.
// Embedding failures are returned wrapped in domain.ErrEmbeddingProvider.
func (s *Service) Retrieve(ctx context.Context, query, topic string, topK int) (Retrieval, error) {
	req, err := request.New(query, topic, topK, s.limits)
	if err != nil {
		return Retrieval{}, err //nolint:wrapcheck // already domain.ErrInvalidQuery
	}

	start := time.Now()
	candidates, applied, fallback := s.candidates(req.Topic())
	out := Retrieval{Results: []result.Result{}, Topic: applied, FallbackUsed: fallback}

	// every retrieval past validation is observed, failed ones with 0 results
	defer func() {
		if s.observe != nil {
			s.observe.ObserveRetrieval(fallback, len(out.Results), time.Since(start).Seconds())
		}
	}()

	if candidates.Len() == 0 {
		return out, nil
	}

	emb, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return Retrieval{}, fmt.Errorf("vectorize query: %w", asProviderError(err))
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)

	if len(emb.Embedding) != s.corpus.Dim() {
		return Retrieval{}, fmt.Errorf("vectorize query: %w: %w: got %d, corpus %d",
			domain.ErrEmbeddingProvider, domain.ErrDimensionMismatch, len(emb.Embedding), s.corpus.Dim())
	}
	qvec, ok := domain.Normalize(emb.Embedding)
	if !ok {
		return Retrieval{}, fmt.Errorf("vectorize query: %w: degenerate query vector", domain.ErrEmbeddingProvider)
	}

	scored, err := s.ranker.Rank(ctx, qvec, candidates, req.TopK())
	if err != nil {
		return Retrieval{}, fmt.Errorf("score candidates: %w", err)
	}

	for _, sc := range scored {
		rec := candidates.Record(sc.Index)
		out.Results = append(out.Results, result.New(rec.ID(), rec.Content(), rec.Topic(), sc.Score))
	}
	return out, nil
}

// candidates applies the topic filter with fallback to the full corpus.
func (s *Service) candidates(topic string) (view corpus.View, applied string, fallback bool) {
	if topic == "" {
		return s.corpus.AllRecords(), "", false
	}
	if s.corpus.HasTopic(topic) {
		if v := s.corpus.RecordsForTopic(topic); v.Len() > 0 {
			return v, topic, false
		}
	}
	return s.corpus.AllRecords(), "", true
}

// asProviderError makes sure embedding failures classify as provider errors
// without hiding budget rejections, which map to their own status.
func asProviderError(err error) error {
	if errors.Is(err, domain.ErrEmbeddingProvider) || errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingProvider, err)
}
