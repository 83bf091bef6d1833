package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

const parquetBatch = 1024

type parquetTable struct{}

// read flattens top-level leaf columns to strings. Nested columns are ignored.
func (parquetTable) read(path string) ([]string, []record, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("open parquet: %w", err)
	}

	// header position by leaf column index
	var header []string
	slot := map[int]int{}
	for i, p := range pf.Schema().Columns() {
		if len(p) != 1 {
			continue
		}
		slot[i] = len(header)
		header = append(header, p[0])
	}

	var records []record
	line := 1
	buf := make([]parquet.Row, parquetBatch)
	for _, rg := range pf.RowGroups() {
		var err error
		records, line, err = readRowGroup(rg, buf, slot, len(header), records, line)
		if err != nil {
			return nil, nil, err
		}
	}
	return header, records, nil
}

// readRowGroup appends the rows of one group to records. line tracks the
// 1-based source line, the header being line 1.
func readRowGroup(
	rg parquet.RowGroup, buf []parquet.Row, slot map[int]int, width int, records []record, line int,
) ([]record, int, error) {
	rows := parquet.NewRowGroupReader(rg)
	defer rows.Close() //nolint:errcheck // read-only

	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			line++
			cells := make([]string, width)
			for _, v := range row {
				if s, ok := slot[v.Column()]; ok && !v.IsNull() {
					cells[s] = v.String()
				}
			}
			records = append(records, record{line: line, cells: cells})
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return records, line, nil
			}
			return nil, line, fmt.Errorf("read rows: %w", err)
		}
	}
}
