package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	retrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Retrieval duration in seconds, query embedding included",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"fallback"},
	)

	retrievalResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_results",
			Help:      "Passages returned per retrieval",
			Buckets:   []float64{0, 1, 5, 10, 15, 25, 50, 100},
		},
	)

	topicFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_topic_fallback_total",
			Help:      "Retrievals where the topic filter fell back to the full corpus",
		},
	)
)

// RetrievalObserver exports retrieval measurements.
type RetrievalObserver struct{}

// ObserveRetrieval records one retrieval.
func (RetrievalObserver) ObserveRetrieval(fallback bool, results int, seconds float64) {
	retrievalDuration.WithLabelValues(strconv.FormatBool(fallback)).Observe(seconds)
	retrievalResults.Observe(float64(results))
	if fallback {
		topicFallbackTotal.Inc()
	}
}
