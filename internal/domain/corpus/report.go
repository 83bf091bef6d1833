package corpus

import (
	"fmt"

	"github.com/kailas-cloud/topicrag/internal/domain"
)

// DropReason classifies why a row was excluded from the corpus.
type DropReason string

// Drop reasons.
const (
	DropInvalidEmbedding  DropReason = "invalid_embedding"
	DropMissingContent    DropReason = "missing_content"
	DropMissingTopic      DropReason = "missing_topic"
	DropDimensionMismatch DropReason = "dimension_mismatch"
	DropZeroNorm          DropReason = "zero_norm"
)

// DropReasons lists every reason in reporting order.
var DropReasons = []DropReason{
	DropInvalidEmbedding,
	DropMissingContent,
	DropMissingTopic,
	DropDimensionMismatch,
	DropZeroNorm,
}

// RowError describes a dropped row. It matches domain.ErrRowParse via errors.Is.
type RowError struct {
	Row    int
	ID     string
	Reason DropReason
	Err    error
}

func (e *RowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row %d (id %q): %s: %v", e.Row, e.ID, e.Reason, e.Err)
	}
	return fmt.Sprintf("row %d (id %q): %s", e.Row, e.ID, e.Reason)
}

// Is reports ErrRowParse so callers can classify without a type assertion.
func (e *RowError) Is(target error) bool { return target == domain.ErrRowParse }

func (e *RowError) Unwrap() error { return e.Err }

// BuildReport summarizes a corpus build.
type BuildReport struct {
	TotalRows int
	KeptRows  int
	Dimension int
	// DimensionCounts maps every dimensionality seen among parseable rows to its row count.
	DimensionCounts map[int]int
	Dropped         map[DropReason]int
	Errors          []*RowError
}

// DroppedRows returns the total number of dropped rows.
func (r *BuildReport) DroppedRows() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

func (r *BuildReport) drop(row RawRow, reason DropReason, err error) {
	r.Dropped[reason]++
	r.Errors = append(r.Errors, &RowError{Row: row.Index, ID: row.ID, Reason: reason, Err: err})
}
