package corpus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/topicrag/internal/domain"
)

// Corpus is the immutable retrieval source. All methods are safe for
// concurrent use: nothing is mutated after Build returns.
type Corpus struct {
	records []Record
	matrix  []float32 // row-major, len(records) x dim
	dim     int
	topics  []string
	byTopic map[string][]int
}

type parsedRow struct {
	raw   RawRow
	topic string
	vec   []float32
}

// Build validates raw rows and assembles a Corpus.
//
// Malformed rows are dropped and reported; the build only fails (with
// domain.ErrDataLoad) when a required column is missing or nothing survives.
// Surviving rows keep their relative source order.
func Build(schema Schema, rows []RawRow) (*Corpus, BuildReport, error) {
	report := BuildReport{
		TotalRows:       len(rows),
		DimensionCounts: make(map[int]int),
		Dropped:         make(map[DropReason]int),
	}

	if missing := schema.MissingColumns(); len(missing) > 0 {
		return nil, report, fmt.Errorf("%w: missing columns %v", domain.ErrDataLoad, missing)
	}

	parsed := make([]parsedRow, 0, len(rows))
	var dimOrder []int
	for _, row := range rows {
		vec, err := ParseEmbedding(row.Embedding)
		if err != nil {
			report.drop(row, DropInvalidEmbedding, err)
			continue
		}
		if strings.TrimSpace(row.Content) == "" {
			report.drop(row, DropMissingContent, nil)
			continue
		}
		topic := strings.TrimSpace(row.Topic)
		if topic == "" {
			report.drop(row, DropMissingTopic, nil)
			continue
		}
		if _, seen := report.DimensionCounts[len(vec)]; !seen {
			dimOrder = append(dimOrder, len(vec))
		}
		report.DimensionCounts[len(vec)]++
		parsed = append(parsed, parsedRow{raw: row, topic: topic, vec: vec})
	}

	dim := majorityDim(dimOrder, report.DimensionCounts)
	report.Dimension = dim

	c := &Corpus{
		dim:     dim,
		byTopic: make(map[string][]int),
	}
	c.records = make([]Record, 0, len(parsed))
	c.matrix = make([]float32, 0, len(parsed)*dim)

	for _, p := range parsed {
		if len(p.vec) != dim {
			report.drop(p.raw, DropDimensionMismatch,
				fmt.Errorf("%w: got %d, corpus %d", domain.ErrDimensionMismatch, len(p.vec), dim))
			continue
		}
		unit, ok := domain.Normalize(p.vec)
		if !ok {
			report.drop(p.raw, DropZeroNorm, errors.New("embedding has zero norm"))
			continue
		}

		idx := len(c.records)
		c.matrix = append(c.matrix, unit...)
		c.records = append(c.records, Record{
			id:      p.raw.ID,
			content: p.raw.Content,
			topic:   p.topic,
		})
		if _, seen := c.byTopic[p.topic]; !seen {
			c.topics = append(c.topics, p.topic)
		}
		c.byTopic[p.topic] = append(c.byTopic[p.topic], idx)
	}

	// Point record embeddings at the final matrix; appends above may have reallocated it.
	for i := range c.records {
		c.records[i].embedding = c.matrix[i*dim : (i+1)*dim : (i+1)*dim]
	}

	report.KeptRows = len(c.records)
	if report.KeptRows == 0 {
		return nil, report, fmt.Errorf("%w: no valid rows out of %d", domain.ErrDataLoad, report.TotalRows)
	}
	return c, report, nil
}

// majorityDim picks the most common dimensionality; ties go to the one seen first.
func majorityDim(order []int, counts map[int]int) int {
	best, bestCount := 0, 0
	for _, d := range order {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

// RecordCount returns the number of records.
func (c *Corpus) RecordCount() int { return len(c.records) }

// Dim returns the embedding dimensionality.
func (c *Corpus) Dim() int { return c.dim }

// Record returns the record at corpus position i.
func (c *Corpus) Record(i int) *Record { return &c.records[i] }

// DistinctTopics returns the topic labels in first-seen order.
func (c *Corpus) DistinctTopics() []string {
	out := make([]string, len(c.topics))
	copy(out, c.topics)
	return out
}

// HasTopic reports whether any record carries the topic (exact match).
func (c *Corpus) HasTopic(topic string) bool {
	_, ok := c.byTopic[topic]
	return ok
}

// RecordsForTopic returns the records of one topic in corpus order.
// An unknown topic yields an empty view.
func (c *Corpus) RecordsForTopic(topic string) View {
	rows, ok := c.byTopic[topic]
	if !ok {
		return View{c: c, rows: []int{}}
	}
	return View{c: c, rows: rows}
}

// AllRecords returns a view over the whole corpus.
func (c *Corpus) AllRecords() View {
	return View{c: c}
}

// View is an ordered subsequence of corpus records aligned with their
// embedding rows. The zero View is empty.
type View struct {
	c    *Corpus
	rows []int // nil selects every record
}

// Len returns the number of records in the view.
func (v View) Len() int {
	if v.c == nil {
		return 0
	}
	if v.rows == nil {
		return len(v.c.records)
	}
	return len(v.rows)
}

// Dim returns the embedding dimensionality.
func (v View) Dim() int {
	if v.c == nil {
		return 0
	}
	return v.c.dim
}

// Position returns the corpus position of the i-th view element.
func (v View) Position(i int) int {
	if v.rows == nil {
		return i
	}
	return v.rows[i]
}

// Vector returns the embedding row of the i-th view element without copying.
func (v View) Vector(i int) []float32 {
	p := v.Position(i)
	return v.c.matrix[p*v.c.dim : (p+1)*v.c.dim]
}

// Record returns the i-th view element.
func (v View) Record(i int) *Record {
	return &v.c.records[v.Position(i)]
}
