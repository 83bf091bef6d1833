package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/topicrag/internal/domain"
	"github.com/kailas-cloud/topicrag/internal/domain/search/result"
)

// Section headings the model is asked to use.
const (
	GroundedHeading     = "Content verified from documents:"
	SupplementalHeading = "Additional content from the model:"
)

// NoAnswer is returned when the model replies with nothing.
const NoAnswer = "The model returned no answer."

// Generator answers a question grounded on retrieved passages.
type Generator struct {
	model       ChatModel
	limits      Limits
	temperature float32
	maxTokens   int
}

// New creates a Generator.
func New(model ChatModel, limits Limits) *Generator {
	return &Generator{model: model, limits: limits, temperature: -1}
}

// WithSampling sets the temperature and max output tokens. A negative
// temperature or zero maxTokens leaves the provider default.
func (g *Generator) WithSampling(temperature float32, maxTokens int) *Generator {
	g.temperature = temperature
	g.maxTokens = maxTokens
	return g
}

// Answer asks the model for an answer to question using results as context.
func (g *Generator) Answer(ctx context.Context, question string, results []result.Result) (string, error) {
	res, err := g.model.Complete(ctx, domain.Completion{
		Prompt:      Prompt(question, BuildContext(results, g.limits)),
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return NoAnswer, nil
	}
	return text, nil
}

// Prompt renders the grounded answering prompt.
func Prompt(question, contextBlock string) string {
	var b strings.Builder
	b.WriteString("You are an assistant answering in-depth mathematics questions based on the provided documents.\n")
	fmt.Fprintf(&b, "The user asks: %q\n\n", question)
	b.WriteString(contextBlock)
	b.WriteString("\nUsing the user's question and the provided documents:\n\n")
	b.WriteString("1. Answer the question as completely and accurately as possible.\n")
	fmt.Fprintf(&b, "2. If the documents answer the question directly and clearly, synthesize that information "+
		"under %q. Build a logical, easy to follow answer from it without copying verbatim, "+
		"and do not mention context numbers or IDs.\n", GroundedHeading)
	fmt.Fprintf(&b, "3. If the documents are insufficient, unclear or only partly relevant, use general knowledge "+
		"to fill the gaps under %q.\n", SupplementalHeading)
	fmt.Fprintf(&b, "4. If there are no documents or they are unrelated to the question, answer from general "+
		"knowledge using only %q.\n", SupplementalHeading)
	b.WriteString("5. Keep the two sections clearly separated when both have content; show only the one that applies otherwise.\n")
	b.WriteString("6. Use LaTeX in Markdown for formulas and symbols, and check the LaTeX syntax: " +
		"wrap display blocks as $$\\begin ... \\end$$ and never repeat \\begin or \\end inside one block.\n")
	b.WriteString("7. Keep links to other documents (Google Drive in particular) from the verified content, " +
		"each with a short description, e.g. \"See details at [Google Drive](link)\".\n\n")
	b.WriteString("Your answer:\n")
	return b.String()
}
