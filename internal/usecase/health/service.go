package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing check.
	CheckError CheckResult = "error"
)

// Check names.
const (
	CheckCorpus    = "corpus"
	CheckCache     = "cache"
	CheckEmbedding = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	corpus    CorpusInfo
	cache     Pinger
	embedding EmbeddingChecker
}

// New creates a Service. cache and embedding can be nil.
func New(corpus CorpusInfo, cache Pinger, embedding EmbeddingChecker) *Service {
	return &Service{corpus: corpus, cache: cache, embedding: embedding}
}

// Check runs every configured check.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{
		CheckCorpus: result(s.corpus != nil && s.corpus.RecordCount() > 0, nil),
	}
	if s.cache != nil {
		checks[CheckCache] = result(true, s.cache.Ping(ctx))
	}
	if s.embedding != nil {
		checks[CheckEmbedding] = result(true, s.embedding.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	return Report{Status: status, Checks: checks}
}

func result(ok bool, err error) CheckResult {
	if !ok || err != nil {
		return CheckError
	}
	return CheckOK
}
