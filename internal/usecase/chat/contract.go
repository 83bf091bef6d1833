package chat

import (
	"context"

	"github.com/kailas-cloud/topicrag/internal/domain/search/result"
	"github.com/kailas-cloud/topicrag/internal/usecase/retrieval"
	"github.com/kailas-cloud/topicrag/internal/usecase/topic"
)

// Classifier picks the corpus topic of a question.
type Classifier interface {
	Identify(ctx context.Context, question string) (topic.Identification, error)
}

// Retriever ranks corpus passages for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query, topic string, topK int) (retrieval.Retrieval, error)
}

// Generator writes the grounded answer.
type Generator interface {
	Answer(ctx context.Context, question string, results []result.Result) (string, error)
}
