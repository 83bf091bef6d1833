package dataset

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

type xlsxTable struct {
	sheet string
}

func (t xlsxTable) read(path string) ([]string, []record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	sheet := t.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var header []string
	var records []record
	line := 0
	for rows.Next() {
		line++
		cells, err := rows.Columns()
		if err != nil {
			return nil, nil, fmt.Errorf("sheet %q row %d: %w", sheet, line, err)
		}
		if header == nil {
			header = cells
			continue
		}
		records = append(records, record{line: line, cells: cells})
	}
	if err := rows.Error(); err != nil {
		return nil, nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	if header == nil {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	return header, records, nil
}
