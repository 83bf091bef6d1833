package topicrag

import (
	"errors"

	"github.com/kailas-cloud/topicrag/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrDataLoad               = domain.ErrDataLoad
	ErrRowParse               = domain.ErrRowParse
	ErrDimensionMismatch      = domain.ErrDimensionMismatch
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingProvider      = domain.ErrEmbeddingProvider
)

// ErrNoEmbedder is returned by New without WithEmbedder.
var ErrNoEmbedder = errors.New("topicrag: embedder not configured (use WithEmbedder)")

// ErrNoCorpus is returned by New without WithDataset or WithRows.
var ErrNoCorpus = errors.New("topicrag: corpus source required (use WithDataset or WithRows)")
