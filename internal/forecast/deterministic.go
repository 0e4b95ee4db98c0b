package forecast

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/variance-cli/internal/analysis"
)

var printer = message.NewPrinter(language.English)

// runRuleBased extrapolates next-period risk from current aggregates with no
// external calls. It always succeeds.
func (f *Forecaster) runRuleBased(s *analysis.Summary) Result {
	budget, actual := totals(s)
	variance := actual - budget

	position := "on track"
	switch {
	case variance > 0:
		position = "unfavorable"
	case variance < 0:
		position = "favorable"
	}

	var b strings.Builder
	b.WriteString(printer.Sprintf(
		"Looking ahead based on the current run-rate, the organisation is %s by approximately %.0f",
		position, variance))
	if budget != 0 {
		b.WriteString(printer.Sprintf(", which is about %.1f%% relative to the total budget", variance/budget*100))
	}
	b.WriteString(". Groups with the largest current variances are likely to create the most risk next period and should be reviewed in more detail.")

	var focus []string
	for _, a := range rankedAggregates(s) {
		if len(focus) == f.cfg.MaxFocusAreas {
			break
		}
		focus = append(focus, focusLine(a))
	}
	if len(focus) == 0 {
		focus = append(focus, "Overall variance is small; maintain current controls but continue monitoring key groups.")
	}

	return Result{
		Mode:       ModeRuleBased,
		Narrative:  b.String(),
		FocusAreas: focus,
	}
}

func focusLine(a analysis.Aggregate) string {
	direction := "on budget"
	switch {
	case a.VarianceTotal > 0:
		direction = "above budget"
	case a.VarianceTotal < 0:
		direction = "below budget"
	}
	return printer.Sprintf(
		"%s: currently about %.0f %s. Prioritise a deep-dive review and consider tightening or reallocating budget next period.",
		a.Group, abs(a.VarianceTotal), direction)
}
