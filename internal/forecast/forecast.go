// Package forecast produces forward-looking guidance from a variance
// summary, with the same LLM-or-deterministic contract as narrative.
package forecast

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/variance-cli/internal/analysis"
	"github.com/sells-group/variance-cli/pkg/anthropic"
)

// Generation modes reported in Result.Mode.
const (
	ModeLLM       = "llm_forecast"
	ModeRuleBased = "rule_based_forecast"
)

// Config controls forecast generation.
type Config struct {
	UseLLM        bool    `yaml:"use_llm" mapstructure:"use_llm"`
	Model         string  `yaml:"model" mapstructure:"model"`
	MaxTokens     int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature   float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxFocusAreas int     `yaml:"max_focus_areas" mapstructure:"max_focus_areas"`
}

// DefaultConfig returns the standard forecast settings.
func DefaultConfig() Config {
	return Config{
		UseLLM:        true,
		Model:         "claude-haiku-4-5-20251001",
		MaxTokens:     600,
		Temperature:   0.4,
		MaxFocusAreas: 6,
	}
}

// Result is the forecast contract handed to consumers. FocusAreas are
// ranked by absolute group-level variance, largest first.
type Result struct {
	Mode       string   `json:"mode"`
	Narrative  string   `json:"narrative"`
	FocusAreas []string `json:"focus_areas"`
}

// Forecaster generates forecasts with a guaranteed deterministic fallback.
type Forecaster struct {
	cfg    Config
	client anthropic.Client
}

// NewForecaster builds a Forecaster. A nil client disables LLM mode.
func NewForecaster(cfg Config, client anthropic.Client) *Forecaster {
	if cfg.MaxFocusAreas <= 0 {
		cfg.MaxFocusAreas = DefaultConfig().MaxFocusAreas
	}
	return &Forecaster{cfg: cfg, client: client}
}

// Run produces a forecast for the summary. LLM failures never propagate;
// Mode reports which path produced the text.
func (f *Forecaster) Run(ctx context.Context, s *analysis.Summary) Result {
	if f.cfg.UseLLM && f.client != nil {
		res, err := f.runLLM(ctx, s)
		if err == nil {
			return res
		}
		zap.L().Warn("forecast: llm generation failed, using rule-based fallback", zap.Error(err))
	}
	return f.runRuleBased(s)
}

// rankedAggregates returns the aggregates ordered by absolute variance,
// largest first, ties kept in first-seen order.
func rankedAggregates(s *analysis.Summary) []analysis.Aggregate {
	ranked := append([]analysis.Aggregate(nil), s.Aggregate...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return abs(ranked[i].VarianceTotal) > abs(ranked[j].VarianceTotal)
	})
	return ranked
}

func totals(s *analysis.Summary) (budget, actual float64) {
	for _, a := range s.Aggregate {
		budget += a.BudgetTotal
		actual += a.ActualTotal
	}
	return budget, actual
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
