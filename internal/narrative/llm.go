package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/variance-cli/internal/analysis"
	"github.com/sells-group/variance-cli/pkg/anthropic"
)

// maxSummaryJSONBytes caps how much of the serialized summary is embedded in
// the prompt; very wide uploads would otherwise blow the token budget.
const maxSummaryJSONBytes = 12000

const systemPrompt = "You are a cautious FP&A analyst. " +
	"Write concise, accurate variance explanations. " +
	"Never fabricate financial figures."

func (e *Explainer) runLLM(ctx context.Context, s *analysis.Summary) (Result, error) {
	prompt, err := buildPrompt(s)
	if err != nil {
		return Result{}, err
	}

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &e.cfg.Temperature,
	})
	if err != nil {
		return Result{}, eris.Wrap(err, "narrative: create message")
	}
	resp.Usage.LogCost(e.cfg.Model, "explanation")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Result{}, eris.New("narrative: empty model response")
	}

	narrative, bullets := splitBullets(text)
	return Result{
		Mode:         ModeLLM,
		Narrative:    narrative,
		BulletPoints: bullets,
	}, nil
}

func buildPrompt(s *analysis.Summary) (string, error) {
	summaryJSON, err := json.Marshal(s.ToMap())
	if err != nil {
		return "", eris.Wrap(err, "narrative: marshal summary")
	}
	if len(summaryJSON) > maxSummaryJSONBytes {
		summaryJSON = summaryJSON[:maxSummaryJSONBytes]
	}

	return fmt.Sprintf(`You are a senior FP&A analyst.

You are given structured budget vs actual variance analysis in JSON form.
Your job is to:
1. Write a clear 2-3 paragraph narrative suitable for a CFO.
2. Then provide 3-6 bullet points with the key drivers and takeaways.
3. Do NOT make up new numbers that are not implied by the JSON.

Here is the JSON:

%s`, string(summaryJSON)), nil
}

// splitBullets separates mixed model output into narrative prose and bullet
// lines. If the model wrote no bullets, the first sentences stand in.
func splitBullets(text string) (string, []string) {
	var narrativeLines, bullets []string

	for _, line := range strings.Split(text, "\n") {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "*") || strings.HasPrefix(s, "•") {
			bullets = append(bullets, strings.TrimSpace(strings.TrimLeft(s, "-*• ")))
		} else {
			narrativeLines = append(narrativeLines, s)
		}
	}

	narrative := strings.TrimSpace(strings.Join(narrativeLines, " "))

	if len(bullets) == 0 && narrative != "" {
		for _, p := range strings.Split(narrative, ".") {
			if s := strings.TrimSpace(p); s != "" {
				bullets = append(bullets, s)
			}
			if len(bullets) == 4 {
				break
			}
		}
	}

	return narrative, bullets
}
