package topic

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/topicrag/internal/domain"
)

// Unknown is the option offered to the model when no topic fits.
const Unknown = "unknown topic"

// DefaultTemperature keeps the classification reply close to deterministic.
const DefaultTemperature = 0.1

// Identification is the outcome of classifying a question.
type Identification struct {
	// Topic is the canonical corpus topic; empty when the model chose Unknown
	// or replied with something outside the offered list.
	Topic string
	// Matched is false when the reply matched none of the offered options.
	Matched bool
	// Raw is the trimmed model reply.
	Raw string
}

// Classifier maps a free-text question to one of the corpus topics.
type Classifier struct {
	model       ChatModel
	topics      []string
	temperature float32
}

// New creates a Classifier over the given topic list.
func New(model ChatModel, topics []string) *Classifier {
	t := make([]string, len(topics))
	copy(t, topics)
	return &Classifier{model: model, topics: t, temperature: DefaultTemperature}
}

// WithTemperature overrides the sampling temperature.
func (c *Classifier) WithTemperature(t float32) *Classifier {
	if t >= 0 {
		c.temperature = t
	}
	return c
}

// Topics returns the options offered to the model, without Unknown.
func (c *Classifier) Topics() []string {
	out := make([]string, len(c.topics))
	copy(out, c.topics)
	return out
}

// Identify asks the model which topic fits question best.
func (c *Classifier) Identify(ctx context.Context, question string) (Identification, error) {
	if strings.TrimSpace(question) == "" {
		return Identification{}, fmt.Errorf("%w: empty question", domain.ErrInvalidQuery)
	}

	res, err := c.model.Complete(ctx, domain.Completion{
		Prompt:      c.prompt(question),
		Temperature: c.temperature,
	})
	if err != nil {
		return Identification{}, fmt.Errorf("identify topic: %w", err)
	}

	raw := strings.TrimSpace(res.Text)
	if raw == "" {
		return Identification{}, fmt.Errorf("identify topic: %w: empty reply", domain.ErrGenerationFailed)
	}
	return c.match(raw), nil
}

// match compares the reply case-insensitively against every option.
func (c *Classifier) match(raw string) Identification {
	reply := normalizeReply(raw)
	for _, t := range c.topics {
		if strings.EqualFold(reply, t) {
			return Identification{Topic: t, Matched: true, Raw: raw}
		}
	}
	if strings.EqualFold(reply, Unknown) {
		return Identification{Matched: true, Raw: raw}
	}
	return Identification{Raw: raw}
}

// normalizeReply strips quoting and list markers models tend to echo back.
func normalizeReply(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "- ")
	s = strings.Trim(s, "\"'`*")
	return strings.TrimSpace(s)
}

func (c *Classifier) prompt(question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Given the following question or content: %q\n\n", question)
	b.WriteString("Pick the single most suitable topic for it from this list:\n")
	for _, t := range c.topics {
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteByte('\n')
	}
	b.WriteString("- ")
	b.WriteString(Unknown)
	b.WriteString("\n\nReply with the topic name only, exactly as written in the list, without any explanation.\n")
	fmt.Fprintf(&b, "If no topic fits, reply %q.\n", Unknown)
	return b.String()
}
