package domain

import (
	"context"
	"errors"
	"math"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

type healthyStub struct {
	stubEmbedder
	healthErr error
}

func (h *healthyStub) HealthCheck(_ context.Context) error { return h.healthErr }

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "query: ")

	result, err := emb.Embed(context.Background(), "what is a derivative")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "query: what is a derivative" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, "query: ")

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_HealthCheckForwarded(t *testing.T) {
	boom := errors.New("unreachable")
	emb := NewInstructionEmbedder(&healthyStub{healthErr: boom}, "")
	if err := emb.HealthCheck(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected forwarded health error, got %v", err)
	}

	plain := NewInstructionEmbedder(&stubEmbedder{}, "")
	if err := plain.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected nil for embedder without health check, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	out, ok := Normalize([]float32{3, 4})
	if !ok {
		t.Fatal("expected ok")
	}
	if math.Abs(float64(out[0])-0.6) > 1e-6 || math.Abs(float64(out[1])-0.8) > 1e-6 {
		t.Errorf("unexpected normalized vector: %v", out)
	}
	if math.Abs(Norm(out)-1) > 1e-6 {
		t.Errorf("expected unit norm, got %f", Norm(out))
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	if _, ok := Normalize([]float32{0, 0, 0}); ok {
		t.Error("zero vector must not normalize")
	}
	if _, ok := Normalize(nil); ok {
		t.Error("empty vector must not normalize")
	}
}

func TestEmbeddingUsage_NilSafe(t *testing.T) {
	var u *EmbeddingUsage
	u.AddTokens(5)

	ctx, usage := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).AddTokens(7)
	if usage.TotalTokens != 7 || !usage.Used {
		t.Errorf("unexpected usage: %+v", usage)
	}
	if UsageFromContext(context.Background()) != nil {
		t.Error("expected nil usage without collector")
	}
}
