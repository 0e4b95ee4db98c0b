// Package report renders an analysis run as human-readable text for CLI
// output.
package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/variance-cli/internal/forecast"
	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/narrative"
)

var printer = message.NewPrinter(language.English)

// maxLineItems caps the line-item section; material items always sort ahead
// of the cap in the rendered table.
const maxLineItems = 25

// Format generates a human-readable variance report for a completed run.
func Format(run *model.Run) string {
	var b strings.Builder

	s := run.Summary
	fmt.Fprintf(&b, "# Variance Report: %s\n", run.Source)
	fmt.Fprintf(&b, "%s\n\n", s.Metadata.Description)

	b.WriteString("## Summary\n")
	printer.Fprintf(&b, "- Rows analysed: %d\n", s.Metadata.RowCount)
	printer.Fprintf(&b, "- Material line items: %d\n", s.MaterialCount())
	printer.Fprintf(&b, "- Materiality: abs >= %.0f or >= %.1f%%\n", s.Metadata.MaterialityAbs, s.Metadata.MaterialityPct*100)
	printer.Fprintf(&b, "- Groups: %d\n\n", len(s.Aggregate))

	b.WriteString("## Group variances\n")
	if len(s.Aggregate) == 0 {
		b.WriteString("No aggregate variance data.\n\n")
	} else {
		for _, a := range s.Aggregate {
			printer.Fprintf(&b, "- %s: budget %.0f, actual %.0f, variance %+.0f%s\n",
				a.Group, a.BudgetTotal, a.ActualTotal, a.VarianceTotal, pctSuffix(a.VariancePctTotal))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Material line items\n")
	material := 0
	for _, li := range s.LineItems {
		if !li.Material {
			continue
		}
		if material == maxLineItems {
			break
		}
		material++
		printer.Fprintf(&b, "- %s / %s: budget %.0f, actual %.0f, variance %+.0f%s [%s: %s]\n",
			li.Group, li.Item, li.Budget, li.Actual, li.Variance, pctSuffix(li.VariancePct),
			li.Direction, strings.Join(li.Drivers, ", "))
	}
	if material == 0 {
		b.WriteString("No line items exceeded the configured materiality thresholds.\n")
	}
	b.WriteString("\n")

	if run.Explanation != nil {
		writeNarrative(&b, run.Explanation)
	}
	if run.Forecast != nil {
		writeForecast(&b, run.Forecast)
	}

	return b.String()
}

func writeNarrative(b *strings.Builder, r *narrative.Result) {
	fmt.Fprintf(b, "## Explanation (%s)\n%s\n", r.Mode, r.Narrative)
	for _, p := range r.BulletPoints {
		fmt.Fprintf(b, "- %s\n", p)
	}
	b.WriteString("\n")
}

func writeForecast(b *strings.Builder, r *forecast.Result) {
	fmt.Fprintf(b, "## Forecast (%s)\n%s\n", r.Mode, r.Narrative)
	for _, f := range r.FocusAreas {
		fmt.Fprintf(b, "- %s\n", f)
	}
	b.WriteString("\n")
}

// pctSuffix renders an optional percentage; an absent value renders as n/a
// rather than zero.
func pctSuffix(p *float64) string {
	if p == nil {
		return " (pct n/a)"
	}
	return printer.Sprintf(" (%+.1f%%)", *p*100)
}
