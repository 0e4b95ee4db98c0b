package forecast

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/variance-cli/internal/analysis"
	"github.com/sells-group/variance-cli/pkg/anthropic"
)

type stubClient struct {
	text  string
	err   error
	calls int
}

func (s *stubClient) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: s.text}},
	}, nil
}

func testSummary(t *testing.T) *analysis.Summary {
	t.Helper()
	a, err := analysis.NewAnalyzer(analysis.Config{
		GroupCol: "department", ItemCol: "account",
		BudgetCol: "budget", ActualCol: "actual",
		MaterialityAbs: 100, MaterialityPct: 0.1,
	})
	require.NoError(t, err)

	s, err := a.Run(analysis.Table{
		Columns: []string{"department", "account", "budget", "actual"},
		Rows: []analysis.Row{
			{"department": "Ops", "account": "rent", "budget": 1000.0, "actual": 1200.0},
			{"department": "IT", "account": "cloud", "budget": 2000.0, "actual": 1500.0},
			{"department": "HR", "account": "travel", "budget": 500.0, "actual": 510.0},
		},
	})
	require.NoError(t, err)
	return s
}

func TestRunLLMMode(t *testing.T) {
	t.Parallel()

	client := &stubClient{text: "Risk is concentrated in IT.\n- Reforecast IT cloud spend\n- Hold Ops to plan"}
	f := NewForecaster(DefaultConfig(), client)

	res := f.Run(context.Background(), testSummary(t))
	assert.Equal(t, ModeLLM, res.Mode)
	assert.Equal(t, "Risk is concentrated in IT.", res.Narrative)
	assert.Equal(t, []string{"Reforecast IT cloud spend", "Hold Ops to plan"}, res.FocusAreas)
	assert.Equal(t, 1, client.calls)
}

func TestRunFallsBackOnError(t *testing.T) {
	t.Parallel()

	f := NewForecaster(DefaultConfig(), &stubClient{err: eris.New("timeout")})
	res := f.Run(context.Background(), testSummary(t))
	assert.Equal(t, ModeRuleBased, res.Mode)
	assert.NotEmpty(t, res.Narrative)
	assert.NotEmpty(t, res.FocusAreas)
}

func TestRuleBasedRanking(t *testing.T) {
	t.Parallel()

	f := NewForecaster(Config{MaxFocusAreas: 2}, nil)
	res := f.runRuleBased(testSummary(t))

	// IT has |variance| 500, Ops 200, HR 10; truncated to 2.
	require.Len(t, res.FocusAreas, 2)
	assert.Contains(t, res.FocusAreas[0], "IT")
	assert.Contains(t, res.FocusAreas[0], "below budget")
	assert.Contains(t, res.FocusAreas[1], "Ops")
	assert.Contains(t, res.FocusAreas[1], "above budget")
}

func TestRuleBasedNarrativeDirection(t *testing.T) {
	t.Parallel()

	// Net variance: 200 - 500 + 10 = -290 → favorable.
	f := NewForecaster(DefaultConfig(), nil)
	res := f.runRuleBased(testSummary(t))
	assert.Contains(t, res.Narrative, "favorable")
	assert.Contains(t, res.Narrative, "relative to the total budget")
}

func TestRuleBasedEmptySummary(t *testing.T) {
	t.Parallel()

	f := NewForecaster(DefaultConfig(), nil)
	res := f.runRuleBased(&analysis.Summary{})

	assert.Equal(t, ModeRuleBased, res.Mode)
	assert.Contains(t, res.Narrative, "on track")
	// No pct clause when total budget is zero.
	assert.NotContains(t, res.Narrative, "relative to the total budget")
	require.Len(t, res.FocusAreas, 1)
	assert.Contains(t, res.FocusAreas[0], "maintain current controls")
}

func TestLLMFocusAreaTruncation(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MaxFocusAreas = 2
	client := &stubClient{text: "Outlook steady.\n- one\n- two\n- three\n- four"}
	f := NewForecaster(cfg, client)

	res := f.Run(context.Background(), testSummary(t))
	assert.Equal(t, ModeLLM, res.Mode)
	assert.Equal(t, []string{"one", "two"}, res.FocusAreas)
}

func TestLLMDefaultsWhenUnstructured(t *testing.T) {
	t.Parallel()

	client := &stubClient{text: "- only bullets here"}
	f := NewForecaster(DefaultConfig(), client)

	res := f.Run(context.Background(), testSummary(t))
	assert.Equal(t, ModeLLM, res.Mode)
	assert.NotEmpty(t, res.Narrative)
	assert.Equal(t, []string{"only bullets here"}, res.FocusAreas)
}

func TestBuildPromptRanksGroups(t *testing.T) {
	t.Parallel()

	prompt := buildPrompt(testSummary(t))
	assert.Contains(t, prompt, "Total budget this period: 3500")
	it := strings.Index(prompt, "- IT:")
	ops := strings.Index(prompt, "- Ops:")
	hr := strings.Index(prompt, "- HR:")
	assert.True(t, it < ops && ops < hr, "groups not ranked by absolute variance")
}
