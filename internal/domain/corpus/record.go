package corpus

// RawRow is one untyped dataset row as delivered by a dataset loader.
type RawRow struct {
	Index     int // position in the source, for diagnostics
	ID        string
	Content   string
	Topic     string
	Embedding string
}

// Record is a validated corpus passage with a unit-length embedding.
type Record struct {
	id        string
	content   string
	topic     string
	embedding []float32
}

// ID returns the source identifier, copied verbatim.
func (r *Record) ID() string { return r.id }

// Content returns the passage text.
func (r *Record) Content() string { return r.content }

// Topic returns the topic label.
func (r *Record) Topic() string { return r.topic }

// Embedding returns the unit-normalized vector. It aliases corpus storage
// and must not be modified.
func (r *Record) Embedding() []float32 { return r.embedding }
