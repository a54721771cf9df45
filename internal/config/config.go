// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all pipeline configuration knobs loaded via Viper.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Pacing  PacingConfig  `mapstructure:"pacing"`
	Harvest HarvestConfig `mapstructure:"harvest"`
	Browser BrowserConfig `mapstructure:"browser"`
	Enrich  EnrichConfig  `mapstructure:"enrich"`
	Export  ExportConfig  `mapstructure:"export"`
	DB      DBConfig      `mapstructure:"db"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// PacingConfig bounds the randomized spacing between outbound actions.
type PacingConfig struct {
	MinDelayMs       int     `mapstructure:"min_delay_ms"`
	MaxDelayMs       int     `mapstructure:"max_delay_ms"`
	MaxActionsPerSec float64 `mapstructure:"max_actions_per_sec"`
}

// HarvestConfig bounds the retry and scroll loops of a run.
type HarvestConfig struct {
	MaxLoadRetries  int `mapstructure:"max_load_retries"`
	MaxScrollStalls int `mapstructure:"max_scroll_stalls"`
	MaxScrolls      int `mapstructure:"max_scrolls"`
}

// BrowserConfig configures the headless rendering session.
type BrowserConfig struct {
	Headless      bool   `mapstructure:"headless"`
	UserAgent     string `mapstructure:"user_agent"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	WindowWidth   int    `mapstructure:"window_width"`
	WindowHeight  int    `mapstructure:"window_height"`
}

// EnrichConfig controls website email enrichment.
type EnrichConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	TimeoutSec int  `mapstructure:"timeout_seconds"`
	MaxPages   int  `mapstructure:"max_pages"`
}

// ExportConfig sets the output location and formats.
type ExportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// DBConfig controls optional Postgres persistence of the canonical set.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// MetricsConfig controls the optional Prometheus scrape endpoint.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEADHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("pacing.min_delay_ms", 1000)
	v.SetDefault("pacing.max_delay_ms", 3000)
	v.SetDefault("pacing.max_actions_per_sec", 0)
	v.SetDefault("harvest.max_load_retries", 1)
	v.SetDefault("harvest.max_scroll_stalls", 3)
	v.SetDefault("harvest.max_scrolls", 20)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("browser.nav_timeout_seconds", 45)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("enrich.enabled", false)
	v.SetDefault("enrich.timeout_seconds", 15)
	v.SetDefault("enrich.max_pages", 5)
	v.SetDefault("export.output_dir", "./output")
	v.SetDefault("db.table", "leads")
	v.SetDefault("metrics.port", 0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Pacing.MinDelayMs < 0 || c.Pacing.MaxDelayMs < 0 {
		return fmt.Errorf("pacing delays must be >= 0")
	}
	if c.Pacing.MaxDelayMs < c.Pacing.MinDelayMs {
		return fmt.Errorf("pacing.max_delay_ms must be >= pacing.min_delay_ms")
	}
	if c.Harvest.MaxLoadRetries < 0 {
		return fmt.Errorf("harvest.max_load_retries must be >= 0")
	}
	if c.Browser.NavTimeoutSec <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0")
	}
	if c.Enrich.Enabled && c.Enrich.MaxPages <= 0 {
		return fmt.Errorf("enrich.max_pages must be > 0 when enrichment is enabled")
	}
	if c.Metrics.Port < 0 {
		return fmt.Errorf("metrics.port must be >= 0")
	}
	return nil
}

// MinDelay converts the pacing floor into a duration.
func (c Config) MinDelay() time.Duration {
	return time.Duration(c.Pacing.MinDelayMs) * time.Millisecond
}

// MaxDelay converts the pacing ceiling into a duration.
func (c Config) MaxDelay() time.Duration {
	return time.Duration(c.Pacing.MaxDelayMs) * time.Millisecond
}
