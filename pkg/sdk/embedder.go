package topicrag

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/topicrag/internal/domain"
	openaiTransport "github.com/kailas-cloud/topicrag/internal/transport/openai"
)

// Embedder converts query text to a vector. The vector must come from the
// same model that produced the corpus embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// NewOpenAIEmbedder returns an Embedder for any OpenAI-compatible
// embeddings API (OpenAI, Gemini, Nebius and similar).
func NewOpenAIEmbedder(cfg OpenAIConfig) Embedder {
	return &openAIEmbedder{inner: openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   "sdk",
	})}
}

type openAIEmbedder struct {
	inner *openaiTransport.Embedder
}

func (e *openAIEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	r, err := e.inner.Embed(ctx, text)
	if err != nil {
		return EmbeddingResult{}, err //nolint:wrapcheck // already classified by the transport
	}
	return EmbeddingResult(r), nil
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult(r), nil
}
