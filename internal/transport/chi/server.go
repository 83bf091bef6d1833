// Package chi exposes the retrieval, classification and chat use cases over HTTP.
package chi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kailas-cloud/topicrag/internal/domain"
	"github.com/kailas-cloud/topicrag/internal/domain/search/result"
	domusage "github.com/kailas-cloud/topicrag/internal/domain/usage"
	healthuc "github.com/kailas-cloud/topicrag/internal/usecase/health"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Server holds the use cases behind the HTTP handlers.
type Server struct {
	topics        TopicIdentifier
	chat          Chatter
	retrieval     Retriever
	usage         UsageReporter
	health        HealthReporter
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	topics TopicIdentifier,
	chat Chatter,
	retrieval Retriever,
	usage UsageReporter,
	health HealthReporter,
) *Server {
	return &Server{
		topics:        topics,
		chat:          chat,
		retrieval:     retrieval,
		usage:         usage,
		health:        health,
		errorHandlers: defaultErrorHandlers(),
	}
}

type identifyRequest struct {
	Question string `json:"question"`
}

type identifyResponse struct {
	Topic   *string `json:"topic"`
	Matched bool    `json:"matched"`
}

// IdentifyTopic handles POST /identify-topic.
func (s *Server) IdentifyTopic(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "question is required")
		return
	}

	id, err := s.topics.Identify(r.Context(), req.Question)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, identifyResponse{
		Topic:   optional(id.Topic),
		Matched: id.Matched,
	})
}

type chatRequest struct {
	Query string `json:"query"`
}

type chatResponse struct {
	Response string       `json:"response"`
	Topic    *string      `json:"topic"`
	Fallback bool         `json:"fallback"`
	Sources  []sourceItem `json:"sources"`
}

type sourceItem struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Topic   string  `json:"topic"`
	Score   float64 `json:"score"`
}

// Chat handles POST /chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "query is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ans, err := s.chat.Ask(ctx, req.Query)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response: ans.Text,
		Topic:    optional(ans.Topic),
		Fallback: ans.FallbackUsed,
		Sources:  toSources(ans.Sources),
	})
}

type retrieveRequest struct {
	Query string `json:"query"`
	Topic string `json:"topic"`
	TopK  *int   `json:"top_k"`
}

type retrieveResponse struct {
	Results  []sourceItem `json:"results"`
	Topic    *string      `json:"topic"`
	Fallback bool         `json:"fallback"`
}

// Retrieve handles POST /retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "query is required")
		return
	}
	topK := 0
	if req.TopK != nil {
		if *req.TopK <= 0 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "top_k must be positive")
			return
		}
		topK = *req.TopK
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ret, err := s.retrieval.Retrieve(ctx, req.Query, req.Topic, topK)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, retrieveResponse{
		Results:  toSources(ret.Results),
		Topic:    optional(ret.Topic),
		Fallback: ret.FallbackUsed,
	})
}

type topicsResponse struct {
	Topics  []string `json:"topics"`
	Records int      `json:"records"`
}

// Topics handles GET /topics.
func (s *Server) Topics(w http.ResponseWriter, _ *http.Request) {
	topics := s.retrieval.Topics()
	if topics == nil {
		topics = []string{}
	}
	writeJSON(w, http.StatusOK, topicsResponse{
		Topics:  topics,
		Records: s.retrieval.RecordCount(),
	})
}

type usageResponse struct {
	Period          string    `json:"period"`
	PeriodStartAt   time.Time `json:"period_start_at"`
	PeriodEndAt     time.Time `json:"period_end_at"`
	TokensUsed      int64     `json:"tokens_used"`
	TokensLimit     int64     `json:"tokens_limit"`
	TokensRemaining int64     `json:"tokens_remaining"`
	IsExhausted     bool      `json:"is_exhausted"`
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	report := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, usageResponse{
		Period:          string(report.Period()),
		PeriodStartAt:   report.Start().UTC(),
		PeriodEndAt:     report.End().UTC(),
		TokensUsed:      report.Used(),
		TokensLimit:     report.Limit(),
		TokensRemaining: report.Remaining(),
		IsExhausted:     report.Exhausted(),
	})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func toSources(rs []result.Result) []sourceItem {
	out := make([]sourceItem, len(rs))
	for i := range rs {
		out[i] = sourceItem{
			ID:      rs[i].ID(),
			Content: rs[i].Content(),
			Topic:   rs[i].Topic(),
			Score:   rs[i].Score(),
		}
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
