package retrieval

import (
	"context"

	"github.com/kailas-cloud/topicrag/internal/domain"
	"github.com/kailas-cloud/topicrag/internal/domain/corpus"
	"github.com/kailas-cloud/topicrag/internal/domain/search/ranker"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Ranker scores candidates against the query vector.
type Ranker interface {
	Rank(ctx context.Context, query []float32, candidates corpus.View, topK int) ([]ranker.Scored, error)
}

// Observer receives per-retrieval measurements. Optional.
type Observer interface {
	ObserveRetrieval(fallback bool, results int, seconds float64)
}
