package topicrag

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	datasetPath string
	datasetOpts DatasetOptions
	rows        []Row
	rowsSet     bool

	embedder         Embedder
	queryInstruction string

	defaultTopK int
	maxTopK     int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithDataset loads the corpus from a dataset file.
func WithDataset(path string, opts DatasetOptions) Option {
	return optionFunc(func(c *clientConfig) {
		c.datasetPath = path
		c.datasetOpts = opts
	})
}

// WithRows builds the corpus from in-memory rows instead of a file.
func WithRows(rows []Row) Option {
	return optionFunc(func(c *clientConfig) {
		c.rows = rows
		c.rowsSet = true
	})
}

// WithEmbedder sets the query embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithQueryInstruction prepends a task prefix to every query before embedding.
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryInstruction = instruction
	})
}

// WithTopK sets the result count used when Retrieve gets topK <= 0.
// Default: 15.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultTopK = k
	})
}

// WithMaxTopK caps the result count of a single Retrieve. Default: 100.
func WithMaxTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxTopK = k
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
