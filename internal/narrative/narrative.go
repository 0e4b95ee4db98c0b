// Package narrative turns a variance summary into CFO-ready explanation
// text, via Claude when configured and a deterministic generator otherwise.
package narrative

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/variance-cli/internal/analysis"
	"github.com/sells-group/variance-cli/pkg/anthropic"
)

// Generation modes reported in Result.Mode.
const (
	ModeLLM       = "llm"
	ModeRuleBased = "rule_based"
)

// Config controls explanation generation.
type Config struct {
	UseLLM      bool    `yaml:"use_llm" mapstructure:"use_llm"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// DefaultConfig returns the standard generation settings.
func DefaultConfig() Config {
	return Config{
		UseLLM:      true,
		Model:       "claude-haiku-4-5-20251001",
		MaxTokens:   700,
		Temperature: 0.2,
	}
}

// Result is the explanation contract handed to consumers.
type Result struct {
	Mode         string   `json:"mode"`
	Narrative    string   `json:"narrative"`
	BulletPoints []string `json:"bullet_points"`
}

// Explainer generates explanations with a guaranteed deterministic fallback.
type Explainer struct {
	cfg    Config
	client anthropic.Client
}

// NewExplainer builds an Explainer. A nil client disables LLM mode.
func NewExplainer(cfg Config, client anthropic.Client) *Explainer {
	return &Explainer{cfg: cfg, client: client}
}

// Run produces an explanation for the summary. Failures in the LLM path
// never propagate: the deterministic generator takes over and Mode reports
// which path actually produced the text.
func (e *Explainer) Run(ctx context.Context, s *analysis.Summary) Result {
	if e.cfg.UseLLM && e.client != nil {
		res, err := e.runLLM(ctx, s)
		if err == nil {
			return res
		}
		zap.L().Warn("narrative: llm generation failed, using rule-based fallback", zap.Error(err))
	}
	return e.runRuleBased(s)
}
