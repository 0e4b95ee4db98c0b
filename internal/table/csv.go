// Package table loads budget-vs-actual tables from CSV and XLSX files into
// header-keyed rows for analysis.
package table

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/variance-cli/internal/analysis"
)

// ReadCSV reads a CSV file whose first row is the header and returns a table
// keyed by trimmed header names.
func ReadCSV(path string) (analysis.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return analysis.Table{}, eris.Wrap(err, "table: open csv")
	}
	defer f.Close()

	return ParseCSV(f)
}

// ParseCSV reads CSV data from r. Short rows are padded with empty values;
// fully blank rows are skipped.
func ParseCSV(r io.Reader) (analysis.Table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return analysis.Table{}, eris.Wrap(err, "table: read csv")
	}
	if len(records) == 0 {
		return analysis.Table{}, eris.New("table: csv has no header row")
	}

	header := make([]string, len(records[0]))
	for i, col := range records[0] {
		header[i] = strings.TrimSpace(col)
	}

	rows := make([]analysis.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		rows = append(rows, rowFromRecord(header, rec))
	}

	return analysis.Table{Columns: header, Rows: rows}, nil
}

func rowFromRecord(header, rec []string) analysis.Row {
	row := make(analysis.Row, len(header))
	for i, col := range header {
		if i < len(rec) {
			row[col] = strings.TrimSpace(rec[i])
		} else {
			row[col] = ""
		}
	}
	return row
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
