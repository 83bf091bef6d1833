// Package ranker selects the most similar corpus records for a query vector.
package ranker

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"github.com/kailas-cloud/topicrag/internal/domain"
	"github.com/kailas-cloud/topicrag/internal/domain/corpus"
)

// DefaultChunkSize is the number of rows scored between cancellation checks.
const DefaultChunkSize = 4096

// unitTolerance bounds how far a norm may drift from 1 (float32 storage)
// before the general cosine formula is used instead of the plain dot product.
const unitTolerance = 1e-4

// Scored pairs a candidate with its similarity to the query.
type Scored struct {
	Index    int // position within the candidate view
	Position int // position within the corpus, the tie-breaker
	Score    float64
}

// Ranker returns the topK candidates most similar to query, best first.
// Implementations must be deterministic: equal scores keep corpus order.
type Ranker interface {
	Rank(ctx context.Context, query []float32, candidates corpus.View, topK int) ([]Scored, error)
}

// Dense scores every candidate exactly: one O(n·d) pass plus a bounded heap.
type Dense struct {
	chunkSize int
}

var _ Ranker = (*Dense)(nil)

// NewDense creates an exact cosine ranker.
func NewDense() *Dense {
	return &Dense{chunkSize: DefaultChunkSize}
}

// WithChunkSize sets how many rows are scored between context checks.
func (d *Dense) WithChunkSize(n int) *Dense {
	if n > 0 {
		d.chunkSize = n
	}
	return d
}

// Rank implements Ranker.
//
// A negative topK or a query whose dimensionality differs from the candidates
// is a caller bug and panics with *domain.PreconditionError. The only error
// returned is the context error when ctx is cancelled mid-scan.
func (d *Dense) Rank(ctx context.Context, query []float32, candidates corpus.View, topK int) ([]Scored, error) {
	if topK < 0 {
		panic(&domain.PreconditionError{Op: "rank", Detail: fmt.Sprintf("negative topK %d", topK)})
	}
	n := candidates.Len()
	if n == 0 || topK == 0 {
		return []Scored{}, nil
	}
	if len(query) != candidates.Dim() {
		panic(&domain.PreconditionError{
			Op:     "rank",
			Detail: fmt.Sprintf("query has %d dimensions, candidates %d", len(query), candidates.Dim()),
			Err:    domain.ErrDimensionMismatch,
		})
	}

	qNorm := domain.Norm(query)
	k := min(topK, n)
	h := make(worstFirst, 0, k)

	for start := 0; start < n; start += d.chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("rank: %w", err)
		}
		end := min(start+d.chunkSize, n)
		for i := start; i < end; i++ {
			cand := Scored{
				Index:    i,
				Position: candidates.Position(i),
				Score:    cosine(query, qNorm, candidates.Vector(i)),
			}
			if len(h) < k {
				heap.Push(&h, cand)
			} else if outranks(cand, h[0]) {
				h[0] = cand
				heap.Fix(&h, 0)
			}
		}
	}

	out := make([]Scored, len(h))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(Scored) //nolint:forcetypeassert // worstFirst only holds Scored
	}
	return out, nil
}

// cosine computes the similarity in float64. When both vectors are unit
// length the dot product is returned as is; otherwise it is divided by the
// norms. A zero vector scores 0.
func cosine(q []float32, qNorm float64, row []float32) float64 {
	var dot, rr float64
	for j, x := range row {
		r := float64(x)
		dot += float64(q[j]) * r
		rr += r * r
	}
	rNorm := math.Sqrt(rr)
	if math.Abs(qNorm-1) <= unitTolerance && math.Abs(rNorm-1) <= unitTolerance {
		return dot
	}
	if qNorm == 0 || rNorm == 0 {
		return 0
	}
	return dot / (qNorm * rNorm)
}

// outranks orders by score descending, then corpus position ascending.
func outranks(a, b Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Position < b.Position
}

// worstFirst is a min-heap keeping the weakest kept candidate at the root.
type worstFirst []Scored

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return outranks(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) { *h = append(*h, x.(Scored)) } //nolint:forcetypeassert // heap contract

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
