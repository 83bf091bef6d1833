package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/topicrag/internal/domain"
	"github.com/kailas-cloud/topicrag/internal/metrics"
)

// Chat answers single-turn prompts through the chat completions API.
// Calls are paced by a limiter shared by every purpose view.
type Chat struct {
	client  *openai.Client
	model   string
	purpose string
	pace    *rate.Limiter
	logger  *zap.Logger
}

// NewChat creates a chat client. minInterval spaces consecutive calls;
// zero disables pacing.
func NewChat(cfg *Config, minInterval time.Duration) *Chat {
	pace := rate.NewLimiter(rate.Inf, 1)
	if minInterval > 0 {
		pace = rate.NewLimiter(rate.Every(minInterval), 1)
	}
	return &Chat{
		client:  newClient(cfg),
		model:   cfg.Model,
		purpose: "answer",
		pace:    pace,
		logger:  cfg.log(),
	}
}

// ForPurpose returns a view that labels its metrics with purpose.
// The view shares the client and the pacing limiter.
func (c *Chat) ForPurpose(purpose string) *Chat {
	v := *c
	v.purpose = purpose
	return &v
}

// Complete sends req as a single user message. An empty reply is not an
// error; callers decide what it means.
func (c *Chat) Complete(ctx context.Context, req domain.Completion) (domain.CompletionResult, error) {
	start := time.Now()
	defer func() {
		metrics.LLMRequestDuration.WithLabelValues(c.model, c.purpose).Observe(time.Since(start).Seconds())
	}()

	if err := c.pace.Wait(ctx); err != nil {
		c.count("error")
		return domain.CompletionResult{}, fmt.Errorf("%w: wait for pacing: %w", domain.ErrGenerationFailed, err)
	}

	creq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.Temperature >= 0 {
		creq.Temperature = req.Temperature
	}
	if req.MaxTokens > 0 {
		creq.MaxTokens = req.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		c.count("error")
		c.logger.Warn("Chat completion failed",
			zap.String("model", c.model),
			zap.String("purpose", c.purpose),
			zap.Error(err),
		)
		return domain.CompletionResult{}, apiError("chat completion", domain.ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		c.count("empty")
		return domain.CompletionResult{}, fmt.Errorf("chat completion: no choices: %w", domain.ErrGenerationFailed)
	}

	c.count("success")
	metrics.LLMTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.LLMTokensTotal.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		c.logger.Info("Chat completion filtered", zap.String("purpose", c.purpose))
	}
	return domain.CompletionResult{
		Text:             strings.TrimSpace(choice.Message.Content),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck lists models, which costs no tokens.
func (c *Chat) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (c *Chat) count(status string) {
	metrics.LLMRequestsTotal.WithLabelValues(c.model, c.purpose, status).Inc()
}
