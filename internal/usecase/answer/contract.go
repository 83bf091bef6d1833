package answer

import (
	"context"

	"github.com/kailas-cloud/topicrag/internal/domain"
)

// ChatModel produces the grounded answer.
type ChatModel interface {
	Complete(ctx context.Context, req domain.Completion) (domain.CompletionResult, error)
}
