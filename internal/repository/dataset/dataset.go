// Package dataset reads corpus spreadsheets into untyped rows.
package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/topicrag/internal/domain"
	"github.com/kailas-cloud/topicrag/internal/domain/corpus"
)

// Format is a dataset file format.
type Format string

// Supported formats.
const (
	FormatAuto    Format = "auto"
	FormatXLSX    Format = "xlsx"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// Options controls how a dataset is read.
type Options struct {
	Format  Format
	Sheet   string // xlsx only; empty selects the first sheet
	Columns corpus.ColumnNames
}

// DefaultOptions reads the original math-passages spreadsheet layout.
func DefaultOptions() Options {
	return Options{Format: FormatAuto, Columns: corpus.DefaultColumnNames()}
}

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatXLSX, FormatCSV, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("unknown dataset format %q", s)
	}
}

// Load reads the header and every non-blank row of the dataset at path.
// A missing required column is not an error here; corpus.Build reports it.
func Load(path string, opts Options) (corpus.Schema, []corpus.RawRow, error) {
	format := opts.Format
	if format == "" || format == FormatAuto {
		var err error
		if format, err = detect(path); err != nil {
			return corpus.Schema{}, nil, err
		}
	}

	var r table
	switch format {
	case FormatXLSX:
		r = xlsxTable{sheet: opts.Sheet}
	case FormatCSV:
		r = csvTable{}
	case FormatParquet:
		r = parquetTable{}
	default:
		return corpus.Schema{}, nil, fmt.Errorf("%w: unsupported format %q", domain.ErrDataLoad, format)
	}

	header, records, err := r.read(path)
	if err != nil {
		return corpus.Schema{}, nil, fmt.Errorf("%w: read %s: %w", domain.ErrDataLoad, filepath.Base(path), err)
	}

	schema := corpus.NewSchema(opts.Columns, header)
	rows := make([]corpus.RawRow, 0, len(records))
	for _, rec := range records {
		if blank(rec.cells) {
			continue
		}
		rows = append(rows, schema.RowFromCells(rec.line, rec.cells))
	}
	return schema, rows, nil
}

// table is a tabular source with a header row.
type table interface {
	read(path string) (header []string, records []record, err error)
}

// record is one data row with its 1-based position in the source, header included.
type record struct {
	line  int
	cells []string
}

func detect(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("%w: cannot infer format of %s", domain.ErrDataLoad, filepath.Base(path))
	}
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
