// Package config loads application settings from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/spf13/viper"
)

// Defaults for tunable pipeline settings.
const (
	DefaultDatabasePath   = "$HOME/.local/share/spicesms/spicesms.db"
	DefaultFieldWeight    = 0.8
	DefaultPatternBonus   = 0.2
	DefaultLatencyPenalty = 0.1
	DefaultLatencyBudget  = 50 * time.Millisecond
	DefaultRetryAttempts  = 3
	DefaultRetryDelay     = 50 * time.Millisecond
	DefaultWorkers        = 4
)

// Config holds every setting the CLI wires into the pipeline.
type Config struct {
	Logging    LoggingConfig
	Database   DatabaseConfig
	Patterns   []model.MessagePattern
	Extraction ExtractionConfig
	Retry      RetryConfig
	Workers    int
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// ExtractionConfig tunes the extractor and confidence scorer.
type ExtractionConfig struct {
	GenericFallback bool
	FieldWeight     float64
	PatternBonus    float64
	LatencyPenalty  float64
	LatencyBudget   time.Duration
}

// RetryConfig bounds extraction retries.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// PatternConfig is the YAML shape of a configured message pattern.
type PatternConfig struct {
	ID          string `mapstructure:"id" yaml:"id,omitempty"`
	Institution string `mapstructure:"institution" yaml:"institution"`
	Sender      string `mapstructure:"sender" yaml:"sender"`
	Amount      string `mapstructure:"amount" yaml:"amount,omitempty"`
	Merchant    string `mapstructure:"merchant" yaml:"merchant,omitempty"`
	Date        string `mapstructure:"date" yaml:"date,omitempty"`
	Direction   string `mapstructure:"direction" yaml:"direction,omitempty"`
	Account     string `mapstructure:"account" yaml:"account,omitempty"`
	Disabled    bool   `mapstructure:"disabled" yaml:"disabled,omitempty"`
}

// NewPatternConfig converts a message pattern into its configuration form.
func NewPatternConfig(p model.MessagePattern) PatternConfig {
	return PatternConfig{
		ID:          p.ID,
		Institution: p.Institution,
		Sender:      p.SenderPattern,
		Amount:      p.AmountPattern,
		Merchant:    p.MerchantPattern,
		Date:        p.DatePattern,
		Direction:   p.DirectionPattern,
		Account:     p.AccountPattern,
		Disabled:    !p.IsActive,
	}
}

// MessagePattern converts the configuration form into a message pattern.
func (p PatternConfig) MessagePattern() model.MessagePattern {
	return model.MessagePattern{
		ID:               p.ID,
		Institution:      p.Institution,
		SenderPattern:    p.Sender,
		AmountPattern:    p.Amount,
		MerchantPattern:  p.Merchant,
		DatePattern:      p.Date,
		DirectionPattern: p.Direction,
		AccountPattern:   p.Account,
		IsActive:         !p.Disabled,
	}
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("extraction.generic_fallback", false)
	v.SetDefault("extraction.confidence.field_weight", DefaultFieldWeight)
	v.SetDefault("extraction.confidence.pattern_bonus", DefaultPatternBonus)
	v.SetDefault("extraction.confidence.latency_penalty", DefaultLatencyPenalty)
	v.SetDefault("extraction.confidence.latency_budget", DefaultLatencyBudget)
	v.SetDefault("retry.max_attempts", DefaultRetryAttempts)
	v.SetDefault("retry.delay", DefaultRetryDelay)
	v.SetDefault("ingest.workers", DefaultWorkers)
}

// Load reads the configuration held by v, applying defaults first.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Extraction: ExtractionConfig{
			GenericFallback: v.GetBool("extraction.generic_fallback"),
			FieldWeight:     v.GetFloat64("extraction.confidence.field_weight"),
			PatternBonus:    v.GetFloat64("extraction.confidence.pattern_bonus"),
			LatencyPenalty:  v.GetFloat64("extraction.confidence.latency_penalty"),
			LatencyBudget:   v.GetDuration("extraction.confidence.latency_budget"),
		},
		Retry: RetryConfig{
			MaxAttempts: v.GetInt("retry.max_attempts"),
			Delay:       v.GetDuration("retry.delay"),
		},
		Workers: v.GetInt("ingest.workers"),
	}

	var patterns []PatternConfig
	if err := v.UnmarshalKey("patterns", &patterns); err != nil {
		return nil, fmt.Errorf("%w: patterns: %w", common.ErrInvalidConfig, err)
	}
	for i, p := range patterns {
		if p.Institution == "" || p.Sender == "" {
			return nil, fmt.Errorf("%w: pattern %d needs institution and sender", common.ErrInvalidConfig, i)
		}
		cfg.Patterns = append(cfg.Patterns, p.MessagePattern())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if c.Extraction.FieldWeight < 0 || c.Extraction.FieldWeight > 1 {
		return fmt.Errorf("%w: field_weight must be within [0,1]", common.ErrInvalidConfig)
	}
	if c.Extraction.PatternBonus < 0 || c.Extraction.LatencyPenalty < 0 {
		return fmt.Errorf("%w: confidence adjustments must not be negative", common.ErrInvalidConfig)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry.max_attempts must be at least 1", common.ErrInvalidConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: ingest.workers must be at least 1", common.ErrInvalidConfig)
	}
	return nil
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
