// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "topicrag"

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration, httpRequestsTotal, httpInFlight,
			EmbeddingRequestsTotal, EmbeddingRequestDuration, EmbeddingTokensTotal,
			EmbeddingErrorsTotal, EmbeddingBudgetTokensRemaining, EmbeddingCacheTotal,
			LLMRequestsTotal, LLMRequestDuration, LLMTokensTotal,
			retrievalDuration, retrievalResults, topicFallbackTotal,
			corpusRecords, corpusTopics, corpusDimension, corpusDroppedRows,
		)
	})
}
