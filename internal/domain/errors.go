package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataLoad signals a fatal corpus load failure (missing column, no valid rows).
	ErrDataLoad = errors.New("data load failed")
	// ErrRowParse signals a malformed corpus row. Rows carrying it are dropped, never fatal.
	ErrRowParse = errors.New("row parse failed")
	// ErrDimensionMismatch signals vectors of different dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidQuery signals an empty or otherwise unusable query.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProvider signals an embedding provider failure or malformed provider output.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrGenerationFailed signals a failed call to the generative model.
	ErrGenerationFailed = errors.New("generation failed")
)

// PreconditionError reports a violated caller contract inside the ranking core.
// It is raised with panic: a dimension mismatch at ranking time is a wiring bug
// (e.g. the wrong embedding model configured), not a request error.
type PreconditionError struct {
	Op     string
	Detail string
	Err    error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: precondition failed: %s: %v", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: precondition failed: %s", e.Op, e.Detail)
}

func (e *PreconditionError) Unwrap() error { return e.Err }
