package table

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/variance-cli/internal/analysis"
)

// XLSXOptions configures the XLSX reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX reads one sheet of an XLSX workbook. The first row is the header;
// remaining rows become header-keyed records.
func ReadXLSX(path string, opts XLSXOptions) (analysis.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return analysis.Table{}, eris.Wrap(err, "table: open xlsx")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return analysis.Table{}, err
	}
	if len(sheet.Rows) == 0 {
		return analysis.Table{}, eris.Errorf("table: sheet %q has no header row", sheet.Name)
	}

	header := make([]string, len(sheet.Rows[0].Cells))
	for i, cell := range sheet.Rows[0].Cells {
		header[i] = strings.TrimSpace(cell.String())
	}

	rows := make([]analysis.Row, 0, len(sheet.Rows)-1)
	for _, r := range sheet.Rows[1:] {
		rec := make([]string, len(r.Cells))
		for i, cell := range r.Cells {
			rec[i] = cell.String()
		}
		if isBlank(rec) {
			continue
		}
		rows = append(rows, rowFromRecord(header, rec))
	}

	return analysis.Table{Columns: header, Rows: rows}, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("table: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("table: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

// ReadFile dispatches on file extension: .xlsx via ReadXLSX, anything else
// is treated as CSV.
func ReadFile(path string) (analysis.Table, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return ReadXLSX(path, XLSXOptions{})
	}
	return ReadCSV(path)
}
