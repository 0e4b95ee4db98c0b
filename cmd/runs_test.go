package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/narrative"
)

func TestFormatRunsList(t *testing.T) {
	t.Parallel()

	run := *testRun(t, "very-long-budget-export-filename-2026.csv")
	run.ID = "a1b2c3d4-0000-0000-0000-000000000000"
	run.CreatedAt = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	run.Explanation = &narrative.Result{Mode: narrative.ModeRuleBased}

	var buf bytes.Buffer
	formatRunsList(&buf, []model.Run{run})
	out := buf.String()

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "a1b2c3d4")
	assert.NotContains(t, out, "a1b2c3d4-0000")
	assert.Contains(t, out, "very-long-budget-export-fil...")
	assert.Contains(t, out, "rule_based")
	assert.Contains(t, out, "2026-03-01 09:30")
}

func TestFormatRunsListNilSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	formatRunsList(&buf, []model.Run{{ID: "x", Source: "a.csv"}})
	assert.Contains(t, buf.String(), "a.csv")
}

func TestTruncateID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "12345678", truncateID("123456789abc"))
}
