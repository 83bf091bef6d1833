package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/topicrag/internal/domain"
)

// apiError classifies a client error under kind. Provider throttling
// additionally carries domain.ErrRateLimited.
func apiError(op string, kind, err error) error {
	status, detail := describe(err)
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %d %s: %w: %w", op, status, detail, domain.ErrRateLimited, kind)
	}
	if status > 0 {
		return fmt.Errorf("%s: %d %s: %w", op, status, detail, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// errorType is a low-cardinality metrics label for err.
func errorType(err error) string {
	switch status, _ := describe(err); {
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status >= 500:
		return "server_error"
	case status > 0:
		return "client_error"
	default:
		return "transport"
	}
}

func describe(err error) (int, string) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, apiErr.Message
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, bodyDetail(reqErr.Body)
	}
	return 0, ""
}

// bodyDetail pulls a message out of the error body shapes seen across
// OpenAI-compatible providers: {"detail"}, {"error":{"message"}} and a
// Gemini-style array of those.
func bodyDetail(body []byte) string {
	type shape struct {
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	pick := func(s shape) string {
		if s.Detail != "" {
			return s.Detail
		}
		return s.Error.Message
	}

	var one shape
	if json.Unmarshal(body, &one) == nil {
		if d := pick(one); d != "" {
			return d
		}
	}
	var many []shape
	if json.Unmarshal(body, &many) == nil && len(many) > 0 {
		if d := pick(many[0]); d != "" {
			return d
		}
	}
	return string(body)
}
