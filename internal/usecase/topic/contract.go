package topic

import (
	"context"

	"github.com/kailas-cloud/topicrag/internal/domain"
)

// ChatModel produces the classification reply.
type ChatModel interface {
	Complete(ctx context.Context, req domain.Completion) (domain.CompletionResult, error)
}
