package embcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/topicrag/internal/db"
	"github.com/kailas-cloud/topicrag/internal/domain"
)

// --- Mocks ---

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  atomic.Int32
	block  chan struct{}
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.block != nil {
		<-m.block
	}
	return m.result, m.err
}

// slowEmbedder blocks until released and fails if its own context ends first.
type slowEmbedder struct {
	result  domain.EmbeddingResult
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (m *slowEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.calls.Add(1) == 1 {
		close(m.started)
	}
	select {
	case <-m.release:
		return m.result, nil
	case <-ctx.Done():
		return domain.EmbeddingResult{}, ctx.Err()
	}
}

type mockKVStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
}

// --- Tests ---

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 10}}
	ms := newMockKVStore()
	counter := newCounter()
	ce := New(inner, ms, "bge-m3", time.Hour, counter, zap.NewNop())

	first, err := ce.Embed(context.Background(), "đạo hàm là gì")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 10 {
		t.Errorf("miss must report provider tokens, got %d", first.TotalTokens)
	}

	second, err := ce.Embed(context.Background(), "đạo hàm là gì")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.TotalTokens != 0 || len(second.Embedding) != 3 || second.Embedding[1] != 0.2 {
		t.Errorf("unexpected cached result: %+v", second)
	}
	if inner.calls.Load() != 1 {
		t.Errorf("expected one provider call, got %d", inner.calls.Load())
	}
	if v := testutil.ToFloat64(counter.WithLabelValues("hit")); v != 1 {
		t.Errorf("hits = %f", v)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues("miss")); v != 1 {
		t.Errorf("misses = %f", v)
	}
	for _, ttl := range ms.ttls {
		if ttl != time.Hour {
			t.Errorf("expected ttl 1h, got %v", ttl)
		}
	}
}

func TestEmbed_NamespaceScopesKeys(t *testing.T) {
	a := New(&mockEmbedder{}, newMockKVStore(), "model-a", 0, nil, zap.NewNop())
	b := New(&mockEmbedder{}, newMockKVStore(), "model-b", 0, nil, zap.NewNop())
	if a.cacheKey("q") == b.cacheKey("q") {
		t.Error("different namespaces must produce different keys")
	}
	if a.cacheKey("q") != a.cacheKey("q") {
		t.Error("keys must be stable")
	}
}

func TestEmbed_InnerErrorNotCached(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProvider}
	ms := newMockKVStore()
	ce := New(inner, ms, "m", 0, nil, zap.NewNop())

	_, err := ce.Embed(context.Background(), "q")
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
	if len(ms.data) != 0 {
		t.Error("failed embeddings must not be cached")
	}
}

func TestEmbed_StoreErrorsDegradeToProvider(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ms := newMockKVStore()
	ms.getErr = errors.New("conn refused")
	ms.setErr = errors.New("conn refused")
	ce := New(inner, ms, "m", 0, nil, zap.NewNop())

	res, err := ce.Embed(context.Background(), "q")
	if err != nil {
		t.Fatalf("cache failures must not fail the request: %v", err)
	}
	if len(res.Embedding) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestEmbed_CorruptEntryIgnored(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.5, 0.5}}}
	ms := newMockKVStore()
	ce := New(inner, ms, "m", 0, nil, zap.NewNop())
	ms.data[ce.cacheKey("q")] = []byte{1, 2, 3}

	res, err := ce.Embed(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls.Load() != 1 || res.Embedding[0] != 0.5 {
		t.Errorf("expected provider fallback, got %+v", res)
	}
}

func TestEmbed_ConcurrentIdenticalQueriesShareOneCall(t *testing.T) {
	inner := &mockEmbedder{
		result: domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 7},
		block:  make(chan struct{}),
	}
	ce := New(inner, newMockKVStore(), "m", 0, nil, zap.NewNop())

	const n = 8
	var wg sync.WaitGroup
	var tokens atomic.Int32
	var started sync.WaitGroup
	started.Add(n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			res, err := ce.Embed(context.Background(), "same question")
			if err != nil {
				t.Error(err)
				return
			}
			tokens.Add(int32(res.TotalTokens))
		}()
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(inner.block)
	wg.Wait()

	calls := inner.calls.Load()
	if calls < 1 || calls > n {
		t.Fatalf("unexpected provider calls: %d", calls)
	}
	if got := tokens.Load(); got != 7*calls {
		t.Errorf("tokens must be reported once per provider call: got %d for %d calls", got, calls)
	}
}

func TestEmbed_CancelledCallerDoesNotFailSharedFlight(t *testing.T) {
	inner := &slowEmbedder{
		result:  domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 5},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	ms := newMockKVStore()
	ce := New(inner, ms, "m", 0, nil, zap.NewNop())

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := ce.Embed(firstCtx, "shared question")
		firstErr <- err
	}()
	<-inner.started

	type outcome struct {
		res domain.EmbeddingResult
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := ce.Embed(context.Background(), "shared question")
		second <- outcome{res, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancelled caller: expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(inner.release)
	select {
	case got := <-second:
		if got.err != nil {
			t.Fatalf("live caller failed: %v", got.err)
		}
		if len(got.res.Embedding) != 2 || got.res.Embedding[0] != 1 {
			t.Errorf("unexpected embedding: %v", got.res.Embedding)
		}
	case <-time.After(time.Second):
		t.Fatal("live caller did not return")
	}

	if calls := inner.calls.Load(); calls != 1 {
		t.Errorf("provider calls = %d, want 1", calls)
	}
	ms.mu.Lock()
	cached := len(ms.data)
	ms.mu.Unlock()
	if cached != 1 {
		t.Errorf("the finished flight must still be cached, entries = %d", cached)
	}
}

func TestEmbed_CallerCancelledBeforeResult(t *testing.T) {
	inner := &slowEmbedder{
		result:  domain.EmbeddingResult{Embedding: []float32{1}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	defer close(inner.release)
	ce := New(inner, newMockKVStore(), "m", 0, nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := ce.Embed(ctx, "q"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestEncodeDecode(t *testing.T) {
	in := []float32{0, -1.5, 3.25}
	out, err := decode(encode(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("index %d: %v != %v", i, out[i], in[i])
		}
	}
	if _, err := decode(nil); err == nil {
		t.Error("expected error for empty payload")
	}
}
