package analysis

import "sort"

// Row is a single input record keyed by column name. Values may be any
// representation convertible to the expected type (string, float64, int, ...).
type Row map[string]any

// Table is a schema-carrying collection of rows. Columns is the authoritative
// schema; rows may omit columns (treated as empty values).
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// TableFromRows builds a Table whose schema is the union of keys across rows,
// sorted for determinism. Use this when no explicit header is available.
func TableFromRows(rows []Row) Table {
	set := make(map[string]bool)
	for _, r := range rows {
		for k := range r {
			set[k] = true
		}
	}
	cols := make([]string, 0, len(set))
	for k := range set {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return Table{Columns: cols, Rows: rows}
}

// Direction classifies the sign of a variance.
type Direction string

const (
	DirectionFavorable   Direction = "favorable"
	DirectionUnfavorable Direction = "unfavorable"
	DirectionNeutral     Direction = "neutral"
)

// Driver tags summarize why a line was flagged.
const (
	DriverOverspend  = "overspend"
	DriverUnderspend = "underspend"
	DriverBaseline   = "baseline"
)

// LineItem is the per-row variance record. VariancePct is nil when the
// budget is zero: the percentage is not computable and must never be
// substituted with a number.
type LineItem struct {
	Group       string    `json:"group"`
	Item        string    `json:"item"`
	Period      string    `json:"period,omitempty"`
	Budget      float64   `json:"budget"`
	Actual      float64   `json:"actual"`
	Variance    float64   `json:"variance"`
	VariancePct *float64  `json:"variance_pct"`
	Direction   Direction `json:"direction"`
	Material    bool      `json:"material"`
	Drivers     []string  `json:"drivers"`
}

// Aggregate is the group-level roll-up. VariancePctTotal follows the same
// zero-budget rule as LineItem.VariancePct.
type Aggregate struct {
	Group            string   `json:"group"`
	BudgetTotal      float64  `json:"budget_total"`
	ActualTotal      float64  `json:"actual_total"`
	VarianceTotal    float64  `json:"variance_total"`
	VariancePctTotal *float64 `json:"variance_pct_total"`
}

// Metadata describes a completed analysis run.
type Metadata struct {
	Description    string  `json:"description"`
	RowCount       int     `json:"row_count"`
	MaterialityAbs float64 `json:"materiality_abs"`
	MaterialityPct float64 `json:"materiality_pct"`
}

// Summary is the immutable result of one analysis run. Aggregate entries are
// in first-seen group order; LineItems preserve cleaned input order.
type Summary struct {
	Metadata  Metadata    `json:"metadata"`
	Aggregate []Aggregate `json:"aggregate"`
	LineItems []LineItem  `json:"line_items"`
}

// ToMap serializes the summary to a plain nested structure of maps, slices
// and scalars, suitable for hand-off to rendering and narrative collaborators.
// Absent percentages appear as nil.
func (s *Summary) ToMap() map[string]any {
	aggs := make([]map[string]any, len(s.Aggregate))
	for i, a := range s.Aggregate {
		aggs[i] = map[string]any{
			"group":              a.Group,
			"budget_total":       a.BudgetTotal,
			"actual_total":       a.ActualTotal,
			"variance_total":     a.VarianceTotal,
			"variance_pct_total": optFloat(a.VariancePctTotal),
		}
	}

	lines := make([]map[string]any, len(s.LineItems))
	for i, li := range s.LineItems {
		lines[i] = map[string]any{
			"group":        li.Group,
			"item":         li.Item,
			"period":       li.Period,
			"budget":       li.Budget,
			"actual":       li.Actual,
			"variance":     li.Variance,
			"variance_pct": optFloat(li.VariancePct),
			"direction":    string(li.Direction),
			"material":     li.Material,
			"drivers":      append([]string(nil), li.Drivers...),
		}
	}

	return map[string]any{
		"metadata": map[string]any{
			"description":     s.Metadata.Description,
			"row_count":       s.Metadata.RowCount,
			"materiality_abs": s.Metadata.MaterialityAbs,
			"materiality_pct": s.Metadata.MaterialityPct,
		},
		"aggregate":  aggs,
		"line_items": lines,
	}
}

// MaterialCount returns the number of material line items.
func (s *Summary) MaterialCount() int {
	n := 0
	for _, li := range s.LineItems {
		if li.Material {
			n++
		}
	}
	return n
}

func optFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
