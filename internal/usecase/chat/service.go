package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/topicrag/internal/domain"
	"github.com/kailas-cloud/topicrag/internal/domain/search/result"
	"github.com/kailas-cloud/topicrag/internal/logger"
)

// Answer is the outcome of one chat turn.
type Answer struct {
	Text string
	// Topic is the topic the classifier picked; empty when none fit.
	Topic string
	// FallbackUsed is true when retrieval searched the full corpus
	// despite a topic being identified.
	FallbackUsed bool
	Sources      []result.Result
}

// Service runs classify, retrieve and generate for a single question.
type Service struct {
	classifier Classifier
	retriever  Retriever
	generator  Generator
	topK       int
}

// New creates a chat Service. topK <= 0 uses the retriever default.
func New(c Classifier, r Retriever, g Generator, topK int) *Service {
	return &Service{classifier: c, retriever: r, generator: g, topK: topK}
}

// Ask answers question. Classification and retrieval failures degrade the
// answer instead of failing it; only a generation failure is returned.
func (s *Service) Ask(ctx context.Context, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, fmt.Errorf("%w: empty question", domain.ErrInvalidQuery)
	}
	log := logger.FromContext(ctx)

	var topicName string
	id, err := s.classifier.Identify(ctx, question)
	switch {
	case err != nil:
		log.Warn("topic classification failed, searching all topics", zap.Error(err))
	case !id.Matched:
		log.Info("classifier reply matched no topic", zap.String("reply", id.Raw))
	default:
		topicName = id.Topic
	}

	if topicName != "" {
		ctx = logger.With(ctx, zap.String("topic", topicName))
		log = logger.FromContext(ctx)
	}

	sources := []result.Result{}
	var fallback bool
	ret, err := s.retriever.Retrieve(ctx, question, topicName, s.topK)
	if err != nil {
		log.Warn("retrieval failed, answering without context", zap.Error(err))
	} else {
		sources = ret.Results
		fallback = ret.FallbackUsed
	}

	text, err := s.generator.Answer(ctx, question, sources)
	if err != nil {
		return Answer{}, fmt.Errorf("chat: %w", err)
	}

	return Answer{
		Text:         text,
		Topic:        topicName,
		FallbackUsed: fallback,
		Sources:      sources,
	}, nil
}
