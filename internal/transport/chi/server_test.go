package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/topicrag/internal/domain"
	"github.com/kailas-cloud/topicrag/internal/domain/search/result"
	domusage "github.com/kailas-cloud/topicrag/internal/domain/usage"
	"github.com/kailas-cloud/topicrag/internal/metrics"
	chatuc "github.com/kailas-cloud/topicrag/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/topicrag/internal/usecase/health"
	"github.com/kailas-cloud/topicrag/internal/usecase/retrieval"
	"github.com/kailas-cloud/topicrag/internal/usecase/topic"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

// --- mocks ---

type mockIdentifier struct {
	id  topic.Identification
	err error
}

func (m *mockIdentifier) Identify(context.Context, string) (topic.Identification, error) {
	return m.id, m.err
}

type mockChatter struct {
	answer chatuc.Answer
	tokens int
	err    error
	got    string
}

func (m *mockChatter) Ask(ctx context.Context, question string) (chatuc.Answer, error) {
	m.got = question
	if m.tokens > 0 {
		domain.UsageFromContext(ctx).AddTokens(m.tokens)
	}
	return m.answer, m.err
}

type mockRetriever struct {
	ret     retrieval.Retrieval
	err     error
	topics  []string
	records int
	tokens  int

	gotQuery string
	gotTopic string
	gotTopK  int
}

func (m *mockRetriever) Retrieve(ctx context.Context, query, topic string, topK int) (retrieval.Retrieval, error) {
	m.gotQuery, m.gotTopic, m.gotTopK = query, topic, topK
	if m.tokens > 0 {
		domain.UsageFromContext(ctx).AddTokens(m.tokens)
	}
	return m.ret, m.err
}

func (m *mockRetriever) Topics() []string { return m.topics }
func (m *mockRetriever) RecordCount() int { return m.records }

type mockUsage struct {
	got domusage.Period
}

func (m *mockUsage) GetReport(_ context.Context, p domusage.Period) domusage.Report {
	m.got = p
	start := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	return domusage.NewReport(p, start, start.AddDate(0, 0, 1), 1000, 250)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type fixture struct {
	identifier *mockIdentifier
	chatter    *mockChatter
	retriever  *mockRetriever
	usage      *mockUsage
	health     *mockHealth
	handler    http.Handler
}

func newFixture(t *testing.T, opts RouterOptions) *fixture {
	t.Helper()
	f := &fixture{
		identifier: &mockIdentifier{},
		chatter:    &mockChatter{},
		retriever:  &mockRetriever{},
		usage:      &mockUsage{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{healthuc.CheckCorpus: healthuc.CheckOK},
		}},
	}
	s := NewServer(f.identifier, f.chatter, f.retriever, f.usage, f.health)
	f.handler = NewRouter(s, opts)
	return f
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func sampleResults() []result.Result {
	return []result.Result{
		result.New("1", "Phương trình bậc hai", "Đại số", 0.91),
		result.New("7", "Định lý Pythagoras", "Hình học", 0.42),
	}
}

// --- /identify-topic ---

func TestIdentifyTopic(t *testing.T) {
	tests := []struct {
		name        string
		id          topic.Identification
		wantTopic   any
		wantMatched bool
	}{
		{"matched", topic.Identification{Topic: "Đại số", Matched: true}, "Đại số", true},
		{"unknown option", topic.Identification{Matched: true, Raw: topic.Unknown}, nil, true},
		{"no match", topic.Identification{Raw: "Thiên văn"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, RouterOptions{})
			f.identifier.id = tt.id

			rr := f.do(http.MethodPost, "/identify-topic", map[string]string{"question": "giải phương trình"})
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
			}
			got := decode[map[string]any](t, rr)
			if got["topic"] != tt.wantTopic {
				t.Errorf("topic = %v, want %v", got["topic"], tt.wantTopic)
			}
			if got["matched"] != tt.wantMatched {
				t.Errorf("matched = %v, want %v", got["matched"], tt.wantMatched)
			}
		})
	}
}

func TestIdentifyTopic_BadRequests(t *testing.T) {
	f := newFixture(t, RouterOptions{})

	for _, body := range []any{map[string]string{}, map[string]string{"question": "   "}, "{not json"} {
		rr := f.do(http.MethodPost, "/identify-topic", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %v: status = %d, want 400", body, rr.Code)
			continue
		}
		if got := decode[ErrorResponse](t, rr); got.Code != CodeBadRequest {
			t.Errorf("code = %s, want %s", got.Code, CodeBadRequest)
		}
	}
}

func TestIdentifyTopic_GenerationFailed(t *testing.T) {
	f := newFixture(t, RouterOptions{})
	f.identifier.err = fmt.Errorf("identify topic: %w", domain.ErrGenerationFailed)

	rr := f.do(http.MethodPost, "/identify-topic", map[string]string{"question": "q"})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
	got := decode[ErrorResponse](t, rr)
	if got.Code != CodeGenerationFailed || got.Message != domain.ErrGenerationFailed.Error() {
		t.Errorf("error = %+v", got)
	}
}

// --- /chat ---

func TestChat(t *testing.T) {
	f := newFixture(t, RouterOptions{})
	f.chatter.answer = chatuc.Answer{
		Text:    "Content verified from documents:\nx = 2",
		Topic:   "Đại số",
		Sources: sampleResults(),
	}
	f.chatter.tokens = 12

	rr := f.do(http.MethodPost, "/chat", map[string]string{"query": "giải x^2 = 4"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if f.chatter.got != "giải x^2 = 4" {
		t.Errorf("question = %q", f.chatter.got)
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "12" {
		t.Errorf("X-Embedding-Tokens = %q, want 12", got)
	}

	var resp chatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Topic == nil || *resp.Topic != "Đại số" {
		t.Errorf("topic = %v", resp.Topic)
	}
	if len(resp.Sources) != 2 || resp.Sources[0].ID != "1" || resp.Sources[0].Score != 0.91 {
		t.Errorf("sources = %+v", resp.Sources)
	}
}

func TestChat_NoTopicNoSources(t *testing.T) {
	f := newFixture(t, RouterOptions{})
	f.chatter.answer = chatuc.Answer{Text: "hello"}

	rr := f.do(http.MethodPost, "/chat", map[string]string{"query": "hi"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decode[map[string]any](t, rr)
	if got["topic"] != nil {
		t.Errorf("topic = %v, want null", got["topic"])
	}
	if src, ok := got["sources"].([]any); !ok || len(src) != 0 {
		t.Errorf("sources = %v, want []", got["sources"])
	}
	if rr.Header().Get("X-Embedding-Tokens") != "" {
		t.Error("X-Embedding-Tokens should be absent without embedding")
	}
}

func TestChat_MissingQuery(t *testing.T) {
	f := newFixture(t, RouterOptions{})
	rr := f.do(http.MethodPost, "/chat", map[string]string{"question": "wrong field"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

// --- /retrieve ---

func TestRetrieve(t *testing.T) {
	f := newFixture(t, RouterOptions{})
	f.retriever.ret = retrieval.Retrieval{Results: sampleResults()[:1], Topic: "Đại số"}
	f.retriever.tokens = 3

	rr := f.do(http.MethodPost, "/retrieve", map[string]any{"query": "phương trình", "topic": "Đại số", "top_k": 5})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if f.retriever.gotQuery != "phương trình" || f.retriever.gotTopic != "Đại số" || f.retriever.gotTopK != 5 {
		t.Errorf("args = %q %q %d", f.retriever.gotQuery, f.retriever.gotTopic, f.retriever.gotTopK)
	}
	if rr.Header().Get("X-Embedding-Tokens") != "3" {
		t.Errorf("X-Embedding-Tokens = %q", rr.Header().Get("X-Embedding-Tokens"))
	}

	var resp retrieveResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Topic != "Đại số" || resp.Fallback {
		t.Errorf("resp = %+v", resp)
	}
}

func TestRetrieve_DefaultTopKAndFallback(t *testing.T) {
	f := newFixture(t, RouterOptions{})
	f.retriever.ret = retrieval.Retrieval{Results: sampleResults(), FallbackUsed: true}

	rr := f.do(http.MethodPost, "/retrieve", map[string]any{"query": "q", "topic": "Thống kê"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if f.retriever.gotTopK != 0 {
		t.Errorf("topK = %d, want 0 (service default)", f.retriever.gotTopK)
	}
	got := decode[map[string]any](t, rr)
	if got["fallback"] != true || got["topic"] != nil {
		t.Errorf("fallback = %v topic = %v", got["fallback"], got["topic"])
	}
}

func TestRetrieve_InvalidTopK(t *testing.T) {
	f := newFixture(t, RouterOptions{})
	for _, k := range []int{0, -3} {
		rr := f.do(http.MethodPost, "/retrieve", map[string]any{"query": "q", "top_k": k})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("top_k %d: status = %d, want 400", k, rr.Code)
		}
	}
}

func TestRetrieve_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{"invalid query", fmt.Errorf("%w: empty query", domain.ErrInvalidQuery), http.StatusBadRequest, CodeBadRequest},
		{"quota", fmt.Errorf("vectorize query: %w", domain.ErrEmbeddingQuotaExceeded),
			http.StatusPaymentRequired, CodeEmbeddingQuotaExceeded},
		{"throttled provider", fmt.Errorf("embedding request: 429: %w: %w", domain.ErrRateLimited, domain.ErrEmbeddingProvider),
			http.StatusTooManyRequests, CodeRateLimited},
		{"provider", fmt.Errorf("vectorize query: %w", domain.ErrEmbeddingProvider),
			http.StatusBadGateway, CodeEmbeddingProviderError},
		{"unknown", errors.New("redis: connection reset"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, RouterOptions{})
			f.retriever.err = tt.err

			rr := f.do(http.MethodPost, "/retrieve", map[string]any{"query": "q"})
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			got := decode[ErrorResponse](t, rr)
			if got.Code != tt.code {
				t.Errorf("code = %s, want %s", got.Code, tt.code)
			}
			if tt.code == CodeInternalError && got.Message != "internal error" {
				t.Errorf("internal message leaked: %q", got.Message)
			}
		})
	}
}

// --- /topics, /usage, /health ---

func TestTopics(t *testing.T) {
	f := newFixture(t, RouterOptions{})
	f.retriever.topics = []string{"Hình học", "Đại số"}
	f.retriever.records = 42

	rr := f.do(http.MethodGet, "/topics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[topicsResponse](t, rr)
	if len(resp.Topics) != 2 || resp.Records != 42 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestTopics_EmptyIsArray(t *testing.T) {
	f := newFixture(t, RouterOptions{})
	rr := f.do(http.MethodGet, "/topics", nil)
	if !bytes.Contains(rr.Body.Bytes(), []byte(`"topics":[]`)) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestGetUsage(t *testing.T) {
	f := newFixture(t, RouterOptions{})

	rr := f.do(http.MethodGet, "/usage", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if f.usage.got != domusage.PeriodDay {
		t.Errorf("default period = %s, want day", f.usage.got)
	}
	resp := decode[usageResponse](t, rr)
	if resp.TokensUsed != 250 || resp.TokensLimit != 1000 || resp.TokensRemaining != 750 || resp.IsExhausted {
		t.Errorf("resp = %+v", resp)
	}

	rr = f.do(http.MethodGet, "/usage?period=month", nil)
	if rr.Code != http.StatusOK || f.usage.got != domusage.PeriodMonth {
		t.Errorf("month: status = %d period = %s", rr.Code, f.usage.got)
	}
}

func TestGetUsage_InvalidPeriod(t *testing.T) {
	f := newFixture(t, RouterOptions{})
	rr := f.do(http.MethodGet, "/usage?period=year", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, RouterOptions{})

	rr := f.do(http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[healthResponse](t, rr)
	if resp.Status != "ok" || resp.Checks["corpus"] != "ok" {
		t.Errorf("resp = %+v", resp)
	}

	f.health.report = healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{healthuc.CheckCache: healthuc.CheckError},
	}
	rr = f.do(http.MethodGet, "/health", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d, want 503", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, RouterOptions{})
	_ = f.do(http.MethodGet, "/topics", nil)

	rr := f.do(http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("topicrag_http_requests_total")) {
		t.Error("expected topicrag_http_requests_total in exposition")
	}
}

// --- router behavior ---

func TestRouter_AuthAndExemptions(t *testing.T) {
	f := newFixture(t, RouterOptions{APIKeys: []string{"secret"}})

	if rr := f.do(http.MethodGet, "/topics", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("/topics without key: %d, want 401", rr.Code)
	}
	if rr := f.do(http.MethodGet, "/health", nil); rr.Code != http.StatusOK {
		t.Errorf("/health without key: %d, want 200", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/topics", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("/topics with key: %d, want 200", rr.Code)
	}
}

func TestRouter_RequestIDHeader(t *testing.T) {
	f := newFixture(t, RouterOptions{})
	rr := f.do(http.MethodGet, "/topics", nil)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	f := newFixture(t, RouterOptions{APIKeys: []string{"secret"}, CORSOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/chat", http.NoBody)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRouter_NotFound(t *testing.T) {
	f := newFixture(t, RouterOptions{})
	rr := f.do(http.MethodGet, "/collections", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := JSONRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/chat", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if got := decode[ErrorResponse](t, rr); got.Code != CodeInternalError {
		t.Errorf("code = %s", got.Code)
	}
}
