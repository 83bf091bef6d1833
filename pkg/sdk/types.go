package topicrag

// Row is one raw corpus row. Embedding is the textual vector form used in
// the datasets, e.g. "[0.12, -0.5, 0.33]".
type Row struct {
	ID        string
	Content   string
	Topic     string
	Embedding string
}

// Columns names the dataset header cells. Empty names use the defaults:
// "ID", "Nội dung", "Chủ đề" and "Embedding_MathBERT".
type Columns struct {
	ID        string
	Content   string
	Topic     string
	Embedding string
}

// DatasetOptions controls how a dataset file is read.
type DatasetOptions struct {
	Format  string // auto (default), xlsx, csv, parquet
	Sheet   string // xlsx only; empty selects the first sheet
	Columns Columns
}

// Result is a single ranked passage.
type Result struct {
	ID      string
	Content string
	Topic   string
	Score   float64
}

// Retrieval is the outcome of Client.Retrieve.
type Retrieval struct {
	Results []Result
	// Topic is the filter actually applied; empty when the full corpus was searched.
	Topic string
	// FallbackUsed is true when a topic was requested but the full corpus was searched.
	FallbackUsed bool
}

// RowIssue describes one dropped row.
type RowIssue struct {
	Row    int
	ID     string
	Reason string
	Error  string
}

// Report summarizes a corpus build.
type Report struct {
	TotalRows int
	KeptRows  int
	Dimension int
	Topics    []string
	// Dropped counts rejected rows by reason, e.g. "invalid_embedding".
	Dropped map[string]int
	Issues  []RowIssue
}
