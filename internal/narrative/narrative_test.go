package narrative

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/variance-cli/internal/analysis"
	"github.com/sells-group/variance-cli/pkg/anthropic"
)

// stubClient returns a canned response or error for every CreateMessage call.
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
			{"department": "Ops", "account": "rent", "budget": 1000.0, "actual": 1300.0},
			{"department": "IT", "account": "cloud", "budget": 2000.0, "actual": 1500.0},
			{"department": "HR", "account": "travel", "budget": 500.0, "actual": 505.0},
		},
	})
	require.NoError(t, err)
	return s
}

func TestRunLLMMode(t *testing.T) {
	t.Parallel()

	client := &stubClient{text: "Spending ran hot in Ops.\n- Ops overspent rent\n- IT came in under budget"}
	cfg := DefaultConfig()
	e := NewExplainer(cfg, client)

	res := e.Run(context.Background(), testSummary(t))
	assert.Equal(t, ModeLLM, res.Mode)
	assert.Equal(t, "Spending ran hot in Ops.", res.Narrative)
	assert.Equal(t, []string{"Ops overspent rent", "IT came in under budget"}, res.BulletPoints)
	assert.Equal(t, 1, client.calls)
}

func TestRunFallsBackOnError(t *testing.T) {
	t.Parallel()

	client := &stubClient{err: eris.New("api unreachable")}
	e := NewExplainer(DefaultConfig(), client)

	res := e.Run(context.Background(), testSummary(t))
	assert.Equal(t, ModeRuleBased, res.Mode)
	assert.NotEmpty(t, res.Narrative)
	assert.NotEmpty(t, res.BulletPoints)
}

func TestRunFallsBackOnEmptyResponse(t *testing.T) {
	t.Parallel()

	client := &stubClient{text: "   "}
	e := NewExplainer(DefaultConfig(), client)

	res := e.Run(context.Background(), testSummary(t))
	assert.Equal(t, ModeRuleBased, res.Mode)
}

func TestRunWithoutClient(t *testing.T) {
	t.Parallel()

	e := NewExplainer(DefaultConfig(), nil)
	res := e.Run(context.Background(), testSummary(t))
	assert.Equal(t, ModeRuleBased, res.Mode)
}

func TestRunLLMDisabled(t *testing.T) {
	t.Parallel()

	client := &stubClient{text: "should not be called"}
	cfg := DefaultConfig()
	cfg.UseLLM = false
	e := NewExplainer(cfg, client)

	res := e.Run(context.Background(), testSummary(t))
	assert.Equal(t, ModeRuleBased, res.Mode)
	assert.Equal(t, 0, client.calls)
}

func TestRuleBasedContent(t *testing.T) {
	t.Parallel()

	e := NewExplainer(Config{}, nil)
	res := e.runRuleBased(testSummary(t))

	assert.Equal(t, ModeRuleBased, res.Mode)
	assert.Contains(t, res.Narrative, "3 line items")
	assert.Contains(t, res.Narrative, "Ops")
	assert.Contains(t, res.Narrative, "IT")
	assert.Contains(t, res.BulletPoints[0], "2 line items were marked as material")
	assert.Contains(t, res.BulletPoints[1], "overspend (1)")
	assert.Contains(t, res.BulletPoints[1], "underspend (1)")
}

func TestRuleBasedNoMaterialItems(t *testing.T) {
	t.Parallel()

	a, err := analysis.NewAnalyzer(analysis.Config{
		GroupCol: "department", ItemCol: "account",
		BudgetCol: "budget", ActualCol: "actual",
		MaterialityAbs: 1e9, MaterialityPct: 100,
	})
	require.NoError(t, err)
	s, err := a.Run(analysis.Table{
		Columns: []string{"department", "account", "budget", "actual"},
		Rows: []analysis.Row{
			{"department": "Ops", "account": "rent", "budget": 1000.0, "actual": 1010.0},
		},
	})
	require.NoError(t, err)

	e := NewExplainer(Config{}, nil)
	res := e.runRuleBased(s)
	assert.Contains(t, res.BulletPoints[0], "No material line items")
}

func TestSplitBullets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		in            string
		wantNarrative string
		wantBullets   []string
	}{
		{
			name:          "mixed prose and bullets",
			in:            "Line one.\nLine two.\n- first\n* second\n• third",
			wantNarrative: "Line one. Line two.",
			wantBullets:   []string{"first", "second", "third"},
		},
		{
			name:          "no bullets falls back to sentences",
			in:            "Alpha. Beta. Gamma.",
			wantNarrative: "Alpha. Beta. Gamma.",
			wantBullets:   []string{"Alpha", "Beta", "Gamma"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			narrative, bullets := splitBullets(tt.in)
			assert.Equal(t, tt.wantNarrative, narrative)
			assert.Equal(t, tt.wantBullets, bullets)
		})
	}
}
