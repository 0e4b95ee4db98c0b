package table

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"department, account ,budget,actual,period",
		"Ops,rent,1000,1200,2026-01",
		"",
		"IT,cloud,500,400,2026-01",
		"HR,travel,250", // short row padded
	}, "\n")

	tbl, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"department", "account", "budget", "actual", "period"}, tbl.Columns)
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, "Ops", tbl.Rows[0]["department"])
	assert.Equal(t, "1200", tbl.Rows[0]["actual"])
	assert.Equal(t, "cloud", tbl.Rows[1]["account"])
	assert.Equal(t, "", tbl.Rows[2]["actual"])
}

func TestParseCSVEmpty(t *testing.T) {
	t.Parallel()

	_, err := ParseCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "budget.csv")
	require.NoError(t, os.WriteFile(path, []byte("department,account,budget,actual\nOps,rent,10,12\n"), 0o644))

	tbl, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "12", tbl.Rows[0]["actual"])

	_, err = ReadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestReadFileDispatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "budget.csv")
	require.NoError(t, os.WriteFile(path, []byte("department,account,budget,actual\nOps,rent,10,12\n"), 0o644))

	tbl, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 1)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}
