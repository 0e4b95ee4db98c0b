// Package analysis computes budget-vs-actual variance over tabular data:
// per-line variances, materiality classification, driver tagging, and
// group-level roll-ups.
package analysis

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
)

// summaryDescription is the fixed description emitted in run metadata.
const summaryDescription = "Budget vs Actual variance analysis"

// neutralTolerance bounds how far from zero a variance may drift (through
// float arithmetic) and still classify as neutral.
const neutralTolerance = 1e-8

// Config binds semantic fields to column names and sets materiality
// thresholds. Both thresholds must be non-negative; MaterialityPct is a
// fraction (0.05 = 5%).
type Config struct {
	GroupCol  string `yaml:"group_col" mapstructure:"group_col"`
	ItemCol   string `yaml:"item_col" mapstructure:"item_col"`
	BudgetCol string `yaml:"budget_col" mapstructure:"budget_col"`
	ActualCol string `yaml:"actual_col" mapstructure:"actual_col"`
	PeriodCol string `yaml:"period_col" mapstructure:"period_col"` // optional, "" = absent

	MaterialityAbs float64 `yaml:"materiality_abs" mapstructure:"materiality_abs"`
	MaterialityPct float64 `yaml:"materiality_pct" mapstructure:"materiality_pct"`
}

// DefaultConfig returns the standard column bindings and thresholds.
func DefaultConfig() Config {
	return Config{
		GroupCol:       "department",
		ItemCol:        "account",
		BudgetCol:      "budget",
		ActualCol:      "actual",
		PeriodCol:      "period",
		MaterialityAbs: 10_000,
		MaterialityPct: 0.05,
	}
}

// Analyzer runs the variance pipeline. It is stateless and safe for
// concurrent use by independent callers.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer validates the configuration and returns an Analyzer.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	var missing []string
	for col, name := range map[string]string{
		"group_col":  cfg.GroupCol,
		"item_col":   cfg.ItemCol,
		"budget_col": cfg.BudgetCol,
		"actual_col": cfg.ActualCol,
	} {
		if name == "" {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("analysis: unbound column config: %s", strings.Join(missing, ", "))
	}
	if cfg.MaterialityAbs < 0 {
		return nil, eris.Errorf("analysis: materiality_abs must be >= 0, got %g", cfg.MaterialityAbs)
	}
	if cfg.MaterialityPct < 0 {
		return nil, eris.Errorf("analysis: materiality_pct must be >= 0, got %g", cfg.MaterialityPct)
	}
	return &Analyzer{cfg: cfg}, nil
}

// Run executes the full pipeline over the table and returns an immutable
// summary. It is pure: no I/O, deterministic for identical inputs.
//
// Schema validation is the only failure mode. Rows whose budget or actual
// cannot be coerced to a number are dropped, not reported as errors; the
// metadata row count reflects the table after that drop.
func (a *Analyzer) Run(t Table) (*Summary, error) {
	if err := a.validateSchema(t); err != nil {
		return nil, err
	}

	lines := a.computeLineItems(t.Rows)
	aggregate := aggregateByGroup(lines)

	return &Summary{
		Metadata: Metadata{
			Description:    summaryDescription,
			RowCount:       len(lines),
			MaterialityAbs: a.cfg.MaterialityAbs,
			MaterialityPct: a.cfg.MaterialityPct,
		},
		Aggregate: aggregate,
		LineItems: lines,
	}, nil
}

// validateSchema confirms every required column is present before any row
// is processed. The period column is optional and never required.
func (a *Analyzer) validateSchema(t Table) error {
	present := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		present[c] = true
	}

	var missing []string
	for _, col := range []string{a.cfg.GroupCol, a.cfg.ItemCol, a.cfg.BudgetCol, a.cfg.ActualCol} {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Missing: missing}
	}
	return nil
}

// computeLineItems coerces, drops unparseable rows, and classifies each
// remaining row independently.
func (a *Analyzer) computeLineItems(rows []Row) []LineItem {
	lines := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		budget, err := cast.ToFloat64E(row[a.cfg.BudgetCol])
		if err != nil {
			continue
		}
		actual, err := cast.ToFloat64E(row[a.cfg.ActualCol])
		if err != nil {
			continue
		}
		lines = append(lines, a.classify(row, budget, actual))
	}
	return lines
}

// classify builds the LineItem for one cleaned row.
func (a *Analyzer) classify(row Row, budget, actual float64) LineItem {
	variance := actual - budget

	var pct *float64
	if budget != 0 {
		v := variance / budget
		pct = &v
	}

	direction := DirectionNeutral
	switch {
	case math.Abs(variance) <= neutralTolerance:
		direction = DirectionNeutral
	case variance > 0:
		direction = DirectionUnfavorable
	default:
		direction = DirectionFavorable
	}

	material := math.Abs(variance) >= a.cfg.MaterialityAbs
	if !material && pct != nil {
		material = math.Abs(*pct) >= a.cfg.MaterialityPct
	}

	var drivers []string
	if material {
		switch direction {
		case DirectionUnfavorable:
			drivers = append(drivers, DriverOverspend)
		case DirectionFavorable:
			drivers = append(drivers, DriverUnderspend)
		}
	}
	// A material-but-neutral row intentionally falls through to baseline.
	if len(drivers) == 0 {
		drivers = append(drivers, DriverBaseline)
	}

	period := ""
	if a.cfg.PeriodCol != "" {
		if v, ok := row[a.cfg.PeriodCol]; ok {
			period = cast.ToString(v)
		}
	}

	return LineItem{
		Group:       cast.ToString(row[a.cfg.GroupCol]),
		Item:        cast.ToString(row[a.cfg.ItemCol]),
		Period:      period,
		Budget:      budget,
		Actual:      actual,
		Variance:    variance,
		VariancePct: pct,
		Direction:   direction,
		Material:    material,
		Drivers:     drivers,
	}
}

// aggregateByGroup rolls line items up into one Aggregate per distinct group,
// in first-seen order. Every cleaned row contributes to exactly one group.
func aggregateByGroup(lines []LineItem) []Aggregate {
	index := make(map[string]int)
	var aggs []Aggregate

	for _, li := range lines {
		i, ok := index[li.Group]
		if !ok {
			i = len(aggs)
			index[li.Group] = i
			aggs = append(aggs, Aggregate{Group: li.Group})
		}
		aggs[i].BudgetTotal += li.Budget
		aggs[i].ActualTotal += li.Actual
	}

	for i := range aggs {
		aggs[i].VarianceTotal = aggs[i].ActualTotal - aggs[i].BudgetTotal
		if math.Abs(aggs[i].BudgetTotal) > neutralTolerance {
			pct := aggs[i].VarianceTotal / aggs[i].BudgetTotal
			aggs[i].VariancePctTotal = &pct
		}
	}
	return aggs
}
