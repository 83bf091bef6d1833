package chi

import (
	"context"

	domusage "github.com/kailas-cloud/topicrag/internal/domain/usage"
	chatuc "github.com/kailas-cloud/topicrag/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/topicrag/internal/usecase/health"
	"github.com/kailas-cloud/topicrag/internal/usecase/retrieval"
	"github.com/kailas-cloud/topicrag/internal/usecase/topic"
)

// TopicIdentifier classifies a question into a corpus topic.
type TopicIdentifier interface {
	Identify(ctx context.Context, question string) (topic.Identification, error)
}

// Chatter answers a question end to end.
type Chatter interface {
	Ask(ctx context.Context, question string) (chatuc.Answer, error)
}

// Retriever ranks corpus passages and describes the corpus.
type Retriever interface {
	Retrieve(ctx context.Context, query, topic string, topK int) (retrieval.Retrieval, error)
	Topics() []string
	RecordCount() int
}

// UsageReporter reports embedding token usage.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// HealthReporter aggregates component checks.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}
