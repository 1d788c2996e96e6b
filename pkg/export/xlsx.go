package export

import (
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const SheetName = "anime"

// WriteXLSX writes a single sheet workbook with a header row. Null cells are
// left blank. Strings longer than a cell can hold are cut to the limit and
// counted in the returned total.
func WriteXLSX(w io.Writer, columns []string, rows [][]any) (truncated int, err error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return 0, err
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return 0, err
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, err
	}

	cells := make([]interface{}, len(columns))
	for r, row := range rows {
		for i := range cells {
			cells[i] = nil
			if i >= len(row) {
				continue
			}
			if s, ok := row[i].(string); ok && utf8.RuneCountInString(s) > excelize.TotalCellChars {
				s = string([]rune(s)[:excelize.TotalCellChars])
				truncated++
				cells[i] = s
				continue
			}
			cells[i] = row[i]
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return truncated, err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return truncated, err
		}
	}

	if err := sw.Flush(); err != nil {
		return truncated, err
	}
	return truncated, f.Write(w)
}
