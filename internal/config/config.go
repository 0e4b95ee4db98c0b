package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/variance-cli/internal/analysis"
	"github.com/sells-group/variance-cli/internal/forecast"
	"github.com/sells-group/variance-cli/internal/narrative"
)

// Config holds the full application configuration.
type Config struct {
	Analysis  analysis.Config  `yaml:"analysis" mapstructure:"analysis"`
	Narrative narrative.Config `yaml:"narrative" mapstructure:"narrative"`
	Forecast  forecast.Config  `yaml:"forecast" mapstructure:"forecast"`
	Anthropic AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Store     StoreConfig      `yaml:"store" mapstructure:"store"`
	Server    ServerConfig     `yaml:"server" mapstructure:"server"`
	Log       LogConfig        `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// StoreConfig configures the run-history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VARIANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("analysis.group_col", "department")
	v.SetDefault("analysis.item_col", "account")
	v.SetDefault("analysis.budget_col", "budget")
	v.SetDefault("analysis.actual_col", "actual")
	v.SetDefault("analysis.period_col", "period")
	v.SetDefault("analysis.materiality_abs", 10_000.0)
	v.SetDefault("analysis.materiality_pct", 0.05)
	v.SetDefault("narrative.use_llm", true)
	v.SetDefault("narrative.model", "claude-haiku-4-5-20251001")
	v.SetDefault("narrative.max_tokens", 700)
	v.SetDefault("narrative.temperature", 0.2)
	v.SetDefault("forecast.use_llm", true)
	v.SetDefault("forecast.model", "claude-haiku-4-5-20251001")
	v.SetDefault("forecast.max_tokens", 600)
	v.SetDefault("forecast.temperature", 0.4)
	v.SetDefault("forecast.max_focus_areas", 6)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "variance.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
