package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct{ err error }

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

type mockCorpus struct{ n int }

func (m mockCorpus) RecordCount() int { return m.n }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	r := New(mockCorpus{n: 3}, &mockPinger{}, &mockEmbeddingChecker{}).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{CheckCorpus, CheckCache, CheckEmbedding} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_CacheDown(t *testing.T) {
	r := New(mockCorpus{n: 3}, &mockPinger{err: errors.New("conn refused")}, &mockEmbeddingChecker{}).
		Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[CheckCache] != CheckError || r.Checks[CheckEmbedding] != CheckOK {
		t.Errorf("unexpected checks: %v", r.Checks)
	}
}

func TestCheck_EmbeddingDown(t *testing.T) {
	r := New(mockCorpus{n: 3}, nil, &mockEmbeddingChecker{err: errors.New("timeout")}).
		Check(context.Background())

	if r.Status != Degraded || r.Checks[CheckEmbedding] != CheckError {
		t.Errorf("unexpected report: %+v", r)
	}
	if _, ok := r.Checks[CheckCache]; ok {
		t.Error("cache check should be absent without a cache backend")
	}
}

func TestCheck_OnlyCorpus(t *testing.T) {
	r := New(mockCorpus{n: 1}, nil, nil).Check(context.Background())

	if r.Status != Healthy || len(r.Checks) != 1 {
		t.Errorf("expected only the corpus check, got %+v", r)
	}
}

func TestCheck_EmptyCorpus(t *testing.T) {
	r := New(mockCorpus{}, nil, nil).Check(context.Background())

	if r.Status != Degraded || r.Checks[CheckCorpus] != CheckError {
		t.Errorf("expected degraded on empty corpus, got %+v", r)
	}
}
