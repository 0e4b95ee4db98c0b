// Package model defines the persisted entities shared by the store, CLI,
// and dashboard API.
package model

import (
	"time"

	"github.com/sells-group/variance-cli/internal/analysis"
	"github.com/sells-group/variance-cli/internal/forecast"
	"github.com/sells-group/variance-cli/internal/narrative"
)

// Run is one completed analysis of one input file: the variance summary plus
// the collaborator outputs generated from it.
type Run struct {
	ID          string            `json:"id"`
	Source      string            `json:"source"` // file name or upload label
	RowCount    int               `json:"row_count"`
	Summary     *analysis.Summary `json:"summary"`
	Explanation *narrative.Result `json:"explanation,omitempty"`
	Forecast    *forecast.Result  `json:"forecast,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
