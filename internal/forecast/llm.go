package forecast

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/variance-cli/internal/analysis"
	"github.com/sells-group/variance-cli/pkg/anthropic"
)

const systemPrompt = "You are a senior FP&A forecasting analyst. " +
	"Given current-period budget vs actual data, you must:\n" +
	"1) Write a short forward-looking narrative (2-3 sentences) about risk and direction for the next period.\n" +
	"2) Provide 4-6 specific focus recommendations for finance leadership.\n" +
	"Use only the information given. Do NOT invent new numeric values."

func (f *Forecaster) runLLM(ctx context.Context, s *analysis.Summary) (Result, error) {
	resp, err := f.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       f.cfg.Model,
		MaxTokens:   f.cfg.MaxTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: buildPrompt(s)}},
		Temperature: &f.cfg.Temperature,
	})
	if err != nil {
		return Result{}, eris.Wrap(err, "forecast: create message")
	}
	resp.Usage.LogCost(f.cfg.Model, "forecast")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Result{}, eris.New("forecast: empty model response")
	}

	var narrativeLines, focus []string
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if strings.HasPrefix(stripped, "-") || strings.HasPrefix(stripped, "*") || strings.HasPrefix(stripped, "•") {
			focus = append(focus, strings.TrimSpace(strings.TrimLeft(stripped, "-*• ")))
		} else {
			narrativeLines = append(narrativeLines, stripped)
		}
	}

	narrative := strings.Join(narrativeLines, " ")
	if narrative == "" {
		narrative = "Based on the current variances, several groups are likely to continue driving overspend risk next period unless corrective actions are taken."
	}
	if len(focus) == 0 {
		focus = []string{
			"Review top overspending groups and agree concrete corrective actions.",
			"Reforecast next period's spend using updated run-rates and operational plans.",
		}
	}
	if len(focus) > f.cfg.MaxFocusAreas {
		focus = focus[:f.cfg.MaxFocusAreas]
	}

	return Result{
		Mode:       ModeLLM,
		Narrative:  narrative,
		FocusAreas: focus,
	}, nil
}

func buildPrompt(s *analysis.Summary) string {
	budget, actual := totals(s)

	var lines []string
	for _, a := range rankedAggregates(s) {
		lines = append(lines, fmt.Sprintf("- %s: budget %.0f, actual %.0f, variance %.0f",
			a.Group, a.BudgetTotal, a.ActualTotal, a.VarianceTotal))
	}

	return fmt.Sprintf(`Total budget this period: %.0f
Total actual spend this period: %.0f
Total variance (actual - budget): %.0f

Group-level summary:
%s

Now provide:
A) A concise forward-looking narrative.
B) A bulleted list of recommended focus areas for next period.`,
		budget, actual, actual-budget, strings.Join(lines, "\n"))
}
