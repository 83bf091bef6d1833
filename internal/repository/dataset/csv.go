package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const utf8BOM = "\ufeff"

type csvTable struct{}

func (csvTable) read(path string) ([]string, []record, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("file is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("header: %w", err)
	}
	if len(header) > 0 {
		// spreadsheet exports often lead with a BOM
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	var records []record
	for {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parse: %w", err)
		}
		line, _ := r.FieldPos(0)
		records = append(records, record{line: line, cells: cells})
	}
	return header, records, nil
}
