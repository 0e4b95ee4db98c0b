package narrative

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/variance-cli/internal/analysis"
)

var printer = message.NewPrinter(language.English)

// runRuleBased builds a deterministic, templated explanation with no
// external calls. It always succeeds.
func (e *Explainer) runRuleBased(s *analysis.Summary) Result {
	meta := s.Metadata

	var unfav, fav []analysis.Aggregate
	for _, a := range s.Aggregate {
		switch {
		case a.VarianceTotal > 0:
			unfav = append(unfav, a)
		case a.VarianceTotal < 0:
			fav = append(fav, a)
		}
	}
	sort.SliceStable(unfav, func(i, j int) bool { return unfav[i].VarianceTotal > unfav[j].VarianceTotal })
	sort.SliceStable(fav, func(i, j int) bool { return fav[i].VarianceTotal < fav[j].VarianceTotal })

	parts := []string{
		printer.Sprintf("Across %d line items, the analysis applied a materiality threshold of %.0f or %.1f%% to identify significant variances.",
			meta.RowCount, meta.MaterialityAbs, meta.MaterialityPct*100),
	}
	if len(unfav) > 0 {
		parts = append(parts, fmt.Sprintf("The largest unfavorable variances occurred in %s.", describeTop(unfav, 2)))
	}
	if len(fav) > 0 {
		parts = append(parts, fmt.Sprintf("Major favorable variances were seen in %s.", describeTop(fav, 2)))
	}

	var bullets []string
	materialCount := s.MaterialCount()
	if materialCount > 0 {
		bullets = append(bullets, printer.Sprintf("%d line items were marked as material.", materialCount))
		if top := topDrivers(s.LineItems, 4); top != "" {
			bullets = append(bullets, "Most common drivers among material items: "+top)
		}
	} else {
		bullets = append(bullets, "No material line items were identified under the current thresholds.")
	}
	bullets = append(bullets, "These structured insights can be used to support executive decision-making.")

	return Result{
		Mode:         ModeRuleBased,
		Narrative:    strings.Join(parts, " "),
		BulletPoints: bullets,
	}
}

func describeTop(aggs []analysis.Aggregate, n int) string {
	if len(aggs) > n {
		aggs = aggs[:n]
	}
	descs := make([]string, len(aggs))
	for i, a := range aggs {
		descs[i] = printer.Sprintf("%s (~%.0f)", a.Group, a.VarianceTotal)
	}
	return strings.Join(descs, " and ")
}

// topDrivers counts driver tags across material line items and formats the
// most frequent ones, ties broken alphabetically for determinism.
func topDrivers(lines []analysis.LineItem, n int) string {
	counts := make(map[string]int)
	for _, li := range lines {
		if !li.Material {
			continue
		}
		for _, d := range li.Drivers {
			counts[d]++
		}
	}
	if len(counts) == 0 {
		return ""
	}

	drivers := make([]string, 0, len(counts))
	for d := range counts {
		drivers = append(drivers, d)
	}
	sort.Slice(drivers, func(i, j int) bool {
		if counts[drivers[i]] != counts[drivers[j]] {
			return counts[drivers[i]] > counts[drivers[j]]
		}
		return drivers[i] < drivers[j]
	})
	if len(drivers) > n {
		drivers = drivers[:n]
	}

	descs := make([]string, len(drivers))
	for i, d := range drivers {
		descs[i] = fmt.Sprintf("%s (%d)", d, counts[d])
	}
	return strings.Join(descs, ", ")
}
