package domain

import "context"

// Completion is a single-turn request to the generative model.
// A negative Temperature or zero MaxTokens leaves the provider default.
type Completion struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// CompletionResult carries the model reply and its token usage.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// ChatModel answers a single prompt. Implementations wrap transport
// failures in ErrGenerationFailed.
type ChatModel interface {
	Complete(ctx context.Context, req Completion) (CompletionResult, error)
}
