package usage

import domusage "github.com/kailas-cloud/topicrag/internal/domain/usage"

// BudgetReader exposes the token budget counters.
type BudgetReader interface {
	Snapshot() domusage.Counters
}
