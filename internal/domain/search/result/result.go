package result

// Result is a single retrieval hit.
type Result struct {
	id      string
	content string
	topic   string
	score   float64
}

// New creates a retrieval result.
func New(id, content, topic string, score float64) Result {
	return Result{id: id, content: content, topic: topic, score: score}
}

// ID returns the record identifier.
func (r *Result) ID() string { return r.id }

// Content returns the full passage text. Truncation belongs to presentation.
func (r *Result) Content() string { return r.content }

// Topic returns the record topic label.
func (r *Result) Topic() string { return r.topic }

// Score returns the cosine similarity, unrounded.
func (r *Result) Score() float64 { return r.score }
