// Package request holds the validated retrieval query.
package request

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/topicrag/internal/domain"
)

// MaxQueryLength is the maximum allowed query length in characters.
const MaxQueryLength = 4096

// Request is a validated retrieval query.
type Request struct {
	query string
	topic string
	topK  int
}

// New validates and normalizes retrieval parameters.
// topK <= 0 selects limits.DefaultTopK; values above limits.MaxTopK are capped.
// The topic is kept verbatim: an empty topic means no filter.
func New(query, topic string, topK int, limits domain.RetrievalConfig) (Request, error) {
	if strings.TrimSpace(query) == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}
	if n := utf8.RuneCountInString(query); n > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (%d chars, max %d)", domain.ErrInvalidQuery, n, MaxQueryLength)
	}
	if topK <= 0 {
		topK = limits.DefaultTopK
	}
	if limits.MaxTopK > 0 && topK > limits.MaxTopK {
		topK = limits.MaxTopK
	}

	return Request{query: query, topic: topic, topK: topK}, nil
}

// Query returns the query text.
func (r Request) Query() string { return r.query }

// Topic returns the requested topic filter, possibly empty.
func (r Request) Topic() string { return r.topic }

// TopK returns the number of results to return.
func (r Request) TopK() int { return r.topK }
