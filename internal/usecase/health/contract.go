package health

import "context"

// Pinger checks cache backend availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusInfo reports the loaded corpus size.
type CorpusInfo interface {
	RecordCount() int
}
