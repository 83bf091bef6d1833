package topicrag

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/topicrag/internal/domain"
	"github.com/kailas-cloud/topicrag/internal/domain/corpus"
	"github.com/kailas-cloud/topicrag/internal/domain/search/ranker"
	"github.com/kailas-cloud/topicrag/internal/repository/dataset"
	"github.com/kailas-cloud/topicrag/internal/usecase/retrieval"
)

// retrievalUseCase is the internal interface for retrieval, replaced in tests.
type retrievalUseCase interface {
	Retrieve(ctx context.Context, query, topic string, topK int) (retrieval.Retrieval, error)
	Topics() []string
	RecordCount() int
}

// Client answers retrieval queries over an in-memory corpus.
// It is safe for concurrent use.
type Client struct {
	svc    retrievalUseCase
	report Report
	obs    *observer
}

// New loads the corpus and wires the retrieval pipeline.
// The context bounds corpus loading only.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil {
		return nil, ErrNoEmbedder
	}
	if cfg.datasetPath == "" && !cfg.rowsSet {
		return nil, ErrNoCorpus
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	c, report, err := buildCorpus(ctx, cfg)
	obs.observe("load", start, err)
	if err != nil {
		return nil, err
	}
	obs.corpusLoaded(report)

	var emb retrieval.Embedder = &embedderAdapter{inner: cfg.embedder}
	if cfg.queryInstruction != "" {
		emb = domain.NewInstructionEmbedder(emb, cfg.queryInstruction)
	}

	svc := retrieval.New(c, ranker.NewDense(), emb).WithLimits(domain.RetrievalConfig{
		DefaultTopK: cfg.defaultTopK,
		MaxTopK:     cfg.maxTopK,
	})

	return &Client{svc: svc, report: report, obs: obs}, nil
}

// Inspect loads a dataset and reports how it would build, without an embedder.
func Inspect(ctx context.Context, path string, opts DatasetOptions) (Report, error) {
	_, report, err := buildCorpus(ctx, &clientConfig{datasetPath: path, datasetOpts: opts})
	return report, err
}

func buildCorpus(ctx context.Context, cfg *clientConfig) (*corpus.Corpus, Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, Report{}, fmt.Errorf("topicrag: load corpus: %w", err)
	}

	var (
		schema corpus.Schema
		rows   []corpus.RawRow
	)
	if cfg.datasetPath != "" {
		opts, err := datasetOptions(cfg.datasetOpts)
		if err != nil {
			return nil, Report{}, err
		}
		schema, rows, err = dataset.Load(cfg.datasetPath, opts)
		if err != nil {
			return nil, Report{}, fmt.Errorf("topicrag: %w", err)
		}
	} else {
		names := corpus.DefaultColumnNames()
		schema = corpus.NewSchema(names, []string{names.ID, names.Content, names.Topic, names.Embedding})
		rows = make([]corpus.RawRow, len(cfg.rows))
		for i, r := range cfg.rows {
			rows[i] = corpus.RawRow{Index: i, ID: r.ID, Content: r.Content, Topic: r.Topic, Embedding: r.Embedding}
		}
	}

	c, br, err := corpus.Build(schema, rows)
	report := toReport(c, &br)
	if err != nil {
		return nil, report, fmt.Errorf("topicrag: %w", err)
	}
	return c, report, nil
}

func datasetOptions(o DatasetOptions) (dataset.Options, error) {
	opts := dataset.DefaultOptions()
	if o.Format != "" {
		f, err := dataset.ParseFormat(o.Format)
		if err != nil {
			return dataset.Options{}, fmt.Errorf("topicrag: %w", err)
		}
		opts.Format = f
	}
	opts.Sheet = o.Sheet
	if o.Columns.ID != "" {
		opts.Columns.ID = o.Columns.ID
	}
	if o.Columns.Content != "" {
		opts.Columns.Content = o.Columns.Content
	}
	if o.Columns.Topic != "" {
		opts.Columns.Topic = o.Columns.Topic
	}
	if o.Columns.Embedding != "" {
		opts.Columns.Embedding = o.Columns.Embedding
	}
	return opts, nil
}

func toReport(c *corpus.Corpus, br *corpus.BuildReport) Report {
	r := Report{
		TotalRows: br.TotalRows,
		KeptRows:  br.KeptRows,
		Dimension: br.Dimension,
		Dropped:   make(map[string]int, len(br.Dropped)),
	}
	if c != nil {
		r.Topics = c.DistinctTopics()
	}
	for reason, n := range br.Dropped {
		r.Dropped[string(reason)] = n
	}
	for _, e := range br.Errors {
		issue := RowIssue{Row: e.Row, ID: e.ID, Reason: string(e.Reason)}
		if e.Err != nil {
			issue.Error = e.Err.Error()
		}
		r.Issues = append(r.Issues, issue)
	}
	return r
}

// Retrieve ranks passages for query. A topic that is empty or not present
// in the corpus searches everything; the returned Retrieval says which.
// topK <= 0 uses the client default.
func (c *Client) Retrieve(ctx context.Context, query, topic string, topK int) (_ Retrieval, err error) {
	start := time.Now()
	defer func() { c.obs.observe("retrieve", start, err) }()

	ret, err := c.svc.Retrieve(ctx, query, topic, topK)
	if err != nil {
		return Retrieval{}, fmt.Errorf("retrieve: %w", err)
	}
	if ret.FallbackUsed {
		c.obs.fallback(topic)
	}

	out := Retrieval{
		Results:      make([]Result, len(ret.Results)),
		Topic:        ret.Topic,
		FallbackUsed: ret.FallbackUsed,
	}
	for i := range ret.Results {
		r := &ret.Results[i]
		out.Results[i] = Result{ID: r.ID(), Content: r.Content(), Topic: r.Topic(), Score: r.Score()}
	}
	return out, nil
}

// Topics returns the distinct corpus topics in first-seen order.
func (c *Client) Topics() []string { return c.svc.Topics() }

// RecordCount returns the number of records kept in the corpus.
func (c *Client) RecordCount() int { return c.svc.RecordCount() }

// Report returns the corpus build report.
func (c *Client) Report() Report { return c.report }
