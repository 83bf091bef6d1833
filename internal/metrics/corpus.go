package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/topicrag/internal/domain/corpus"
)

var (
	corpusRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "corpus_records",
		Help:      "Records kept in the loaded corpus",
	})

	corpusTopics = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "corpus_topics",
		Help:      "Distinct topics in the loaded corpus",
	})

	corpusDimension = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "corpus_embedding_dimension",
		Help:      "Embedding dimension of the loaded corpus",
	})

	corpusDroppedRows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "corpus_dropped_rows",
		Help:      "Rows dropped while loading the corpus, by reason",
	}, []string{"reason"})
)

// ObserveCorpus publishes the outcome of a corpus build.
func ObserveCorpus(report corpus.BuildReport, topics int) {
	corpusRecords.Set(float64(report.KeptRows))
	corpusTopics.Set(float64(topics))
	corpusDimension.Set(float64(report.Dimension))
	for _, reason := range corpus.DropReasons {
		corpusDroppedRows.WithLabelValues(string(reason)).Set(float64(report.Dropped[reason]))
	}
}
