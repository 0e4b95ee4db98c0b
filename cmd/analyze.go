package main

import (
	"encoding/json"
	"os"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/report"
	"github.com/sells-group/variance-cli/internal/runner"
)

var (
	analyzeFiles       []string
	analyzeFormat      string
	analyzeOutput      string
	analyzeNoLLM       bool
	analyzeSave        bool
	analyzeConcurrency int

	analyzeGroupCol       string
	analyzeItemCol        string
	analyzeBudgetCol      string
	analyzeActualCol      string
	analyzePeriodCol      string
	analyzeMaterialityAbs float64
	analyzeMaterialityPct float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze budget-vs-actual files",
	Long: `Computes line-item and group variances for one or more CSV/XLSX files,
classifies materiality, and generates an explanation and forecast for each.

Examples:
  # Single file, human-readable report
  variance-cli analyze --file budget.csv --format text

  # Several files concurrently, JSON to a file, persisted to the run store
  variance-cli analyze --file q1.csv --file q2.xlsx --output results.json --save

  # Deterministic outputs only (no API key needed)
  variance-cli analyze --file budget.csv --no-llm`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		applyAnalyzeOverrides(cmd)

		r, err := runner.New(cfg, initAnthropicClient())
		if err != nil {
			return err
		}

		// Process files concurrently; each goroutine owns its slot so the
		// output order matches the input order.
		results := make([]*model.Run, len(analyzeFiles))
		var failed atomic.Int64

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(analyzeConcurrency)

		for i, path := range analyzeFiles {
			g.Go(func() error {
				run, runErr := r.AnalyzeFile(gCtx, path)
				if runErr != nil {
					failed.Add(1)
					zap.L().Error("analyze: file failed",
						zap.String("file", path),
						zap.Error(runErr),
					)
					return nil // don't abort batch on individual failure
				}
				results[i] = run
				return nil
			})
		}
		_ = g.Wait()

		runs := make([]*model.Run, 0, len(results))
		for _, run := range results {
			if run != nil {
				runs = append(runs, run)
			}
		}

		if len(runs) == 0 {
			return eris.Errorf("analyze: all %d file(s) failed", failed.Load())
		}
		if n := failed.Load(); n > 0 {
			zap.L().Warn("analyze: some files failed", zap.Int64("failed", n))
		}

		if analyzeSave {
			st, storeErr := initStore(ctx)
			if storeErr != nil {
				return storeErr
			}
			defer st.Close() //nolint:errcheck

			for _, run := range runs {
				if saveErr := st.SaveRun(ctx, run); saveErr != nil {
					return eris.Wrapf(saveErr, "analyze: save run for %s", run.Source)
				}
				zap.L().Info("run saved", zap.String("id", run.ID), zap.String("source", run.Source))
			}
		}

		return writeRuns(runs)
	},
}

func init() {
	analyzeCmd.Flags().StringArrayVar(&analyzeFiles, "file", nil, "input CSV/XLSX file (repeatable, required)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "output format: json, yaml, or text")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "", "write output to file (default: stdout)")
	analyzeCmd.Flags().BoolVar(&analyzeNoLLM, "no-llm", false, "skip Claude and use deterministic explanation/forecast")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist runs to the configured store")
	analyzeCmd.Flags().IntVar(&analyzeConcurrency, "concurrency", 3, "max files to process concurrently")

	analyzeCmd.Flags().StringVar(&analyzeGroupCol, "group-col", "", "override grouping column")
	analyzeCmd.Flags().StringVar(&analyzeItemCol, "item-col", "", "override line-item column")
	analyzeCmd.Flags().StringVar(&analyzeBudgetCol, "budget-col", "", "override budget column")
	analyzeCmd.Flags().StringVar(&analyzeActualCol, "actual-col", "", "override actual column")
	analyzeCmd.Flags().StringVar(&analyzePeriodCol, "period-col", "", "override period column")
	analyzeCmd.Flags().Float64Var(&analyzeMaterialityAbs, "materiality-abs", 0, "override absolute materiality threshold")
	analyzeCmd.Flags().Float64Var(&analyzeMaterialityPct, "materiality-pct", 0, "override percentage materiality threshold")

	_ = analyzeCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(analyzeCmd)
}

// applyAnalyzeOverrides layers explicitly-set flags over the loaded config.
func applyAnalyzeOverrides(cmd *cobra.Command) {
	if analyzeGroupCol != "" {
		cfg.Analysis.GroupCol = analyzeGroupCol
	}
	if analyzeItemCol != "" {
		cfg.Analysis.ItemCol = analyzeItemCol
	}
	if analyzeBudgetCol != "" {
		cfg.Analysis.BudgetCol = analyzeBudgetCol
	}
	if analyzeActualCol != "" {
		cfg.Analysis.ActualCol = analyzeActualCol
	}
	if analyzePeriodCol != "" {
		cfg.Analysis.PeriodCol = analyzePeriodCol
	}
	if cmd.Flags().Changed("materiality-abs") {
		cfg.Analysis.MaterialityAbs = analyzeMaterialityAbs
	}
	if cmd.Flags().Changed("materiality-pct") {
		cfg.Analysis.MaterialityPct = analyzeMaterialityPct
	}
	if analyzeNoLLM {
		cfg.Narrative.UseLLM = false
		cfg.Forecast.UseLLM = false
	}
}

// writeRuns renders the runs in the requested format to the output file or
// stdout. A single run is emitted unwrapped; batches as an array.
func writeRuns(runs []*model.Run) error {
	w := os.Stdout
	if analyzeOutput != "" {
		f, err := os.Create(analyzeOutput)
		if err != nil {
			return eris.Wrap(err, "analyze: create output file")
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	var payload any = runs
	if len(runs) == 1 {
		payload = runs[0]
	}

	switch analyzeFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(payload)
	case "text":
		for i, run := range runs {
			if i > 0 {
				if _, err := w.WriteString("\n"); err != nil {
					return eris.Wrap(err, "analyze: write report")
				}
			}
			if _, err := w.WriteString(report.Format(run)); err != nil {
				return eris.Wrap(err, "analyze: write report")
			}
		}
		return nil
	default:
		return eris.Errorf("unsupported output format: %s", analyzeFormat)
	}
}
