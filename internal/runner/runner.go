// Package runner wires the analyzer and its collaborators into a single
// file-to-run pipeline shared by the CLI and the dashboard API.
package runner

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/variance-cli/internal/analysis"
	"github.com/sells-group/variance-cli/internal/config"
	"github.com/sells-group/variance-cli/internal/forecast"
	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/narrative"
	"github.com/sells-group/variance-cli/internal/table"
	"github.com/sells-group/variance-cli/pkg/anthropic"
)

// Runner executes the full analysis pipeline for one input table.
type Runner struct {
	analyzer   *analysis.Analyzer
	explainer  *narrative.Explainer
	forecaster *forecast.Forecaster
}

// New builds a Runner from configuration. A nil client pins the narrative
// and forecast collaborators to their deterministic paths.
func New(cfg *config.Config, client anthropic.Client) (*Runner, error) {
	analyzer, err := analysis.NewAnalyzer(cfg.Analysis)
	if err != nil {
		return nil, eris.Wrap(err, "runner: build analyzer")
	}

	return &Runner{
		analyzer:   analyzer,
		explainer:  narrative.NewExplainer(cfg.Narrative, client),
		forecaster: forecast.NewForecaster(cfg.Forecast, client),
	}, nil
}

// AnalyzeTable runs the pipeline over an already-loaded table.
func (r *Runner) AnalyzeTable(ctx context.Context, source string, tbl analysis.Table) (*model.Run, error) {
	summary, err := r.analyzer.Run(tbl)
	if err != nil {
		return nil, eris.Wrapf(err, "runner: analyze %s", source)
	}

	zap.L().Info("analysis complete",
		zap.String("source", source),
		zap.Int("rows", summary.Metadata.RowCount),
		zap.Int("material", summary.MaterialCount()),
		zap.Int("groups", len(summary.Aggregate)),
	)

	explanation := r.explainer.Run(ctx, summary)
	fc := r.forecaster.Run(ctx, summary)

	return &model.Run{
		Source:      source,
		RowCount:    summary.Metadata.RowCount,
		Summary:     summary,
		Explanation: &explanation,
		Forecast:    &fc,
	}, nil
}

// AnalyzeFile loads a CSV or XLSX file and runs the pipeline over it.
func (r *Runner) AnalyzeFile(ctx context.Context, path string) (*model.Run, error) {
	tbl, err := table.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return r.AnalyzeTable(ctx, filepath.Base(path), tbl)
}
