// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"firestige.xyz/pcapentropy/internal/core"
)

// EnvPrefix is the prefix environment overrides carry, e.g. PCAPENTROPY_LOG_LEVEL.
const EnvPrefix = "PCAPENTROPY"

// Config is the top-level configuration. Maps to the `pcapentropy:` root key in YAML.
type Config struct {
	Capture CaptureConfig `mapstructure:"capture"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Report  ReportConfig  `mapstructure:"report"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// ─── Capture ───

// CaptureConfig selects the capture file and how much of it to read.
type CaptureConfig struct {
	File  string `mapstructure:"file"`
	Limit int    `mapstructure:"limit"` // 0 = unlimited
}

// ─── Filter ───

// FilterConfig holds the optional frame filter expression.
type FilterConfig struct {
	Expression string `mapstructure:"expression"` // e.g. "udp and port 53"
}

// ─── Report ───

// ReportConfig controls the per-record output.
type ReportConfig struct {
	Format       string `mapstructure:"format"`        // text / json
	IgnoreErrors bool   `mapstructure:"ignore_errors"` // suppress non-UDP/TCP reports
}

// ─── Metrics ───

// MetricsConfig controls the end-of-run metrics outputs.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // node_exporter textfile path; empty = disabled
	Summary  bool   `mapstructure:"summary"`  // print a YAML run summary to stderr
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format"`  // text / json
	Pattern string           `mapstructure:"pattern"` // text format only
	Time    string           `mapstructure:"time"`    // Go time layout
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains log destinations besides stderr.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Loading ───

type configRoot struct {
	PcapEntropy Config `mapstructure:"pcapentropy"`
}

// Load loads configuration from path. An empty path yields defaults plus
// environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `pcapentropy.` key prefix maps to PCAPENTROPY_ through the replacer.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.PcapEntropy

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pcapentropy.capture.file", "")
	v.SetDefault("pcapentropy.capture.limit", 0)

	v.SetDefault("pcapentropy.filter.expression", "")

	v.SetDefault("pcapentropy.report.format", "text")
	v.SetDefault("pcapentropy.report.ignore_errors", false)

	v.SetDefault("pcapentropy.metrics.textfile", "")
	v.SetDefault("pcapentropy.metrics.summary", false)

	v.SetDefault("pcapentropy.log.level", "warn")
	v.SetDefault("pcapentropy.log.format", "text")
	v.SetDefault("pcapentropy.log.pattern", "%time [%level] %msg %field")
	v.SetDefault("pcapentropy.log.time", "2006-01-02 15:04:05.000")
	v.SetDefault("pcapentropy.log.outputs.file.enabled", false)
	v.SetDefault("pcapentropy.log.outputs.file.path", "pcapentropy.log")
	v.SetDefault("pcapentropy.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("pcapentropy.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("pcapentropy.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("pcapentropy.log.outputs.file.rotation.compress", true)
}

// ValidateAndApplyDefaults validates configuration and normalises values.
// Every failure wraps core.ErrConfigInvalid.
func (cfg *Config) ValidateAndApplyDefaults() error {
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: invalid log format: %s (must be json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("%w: log.outputs.file.path is required when file output is enabled", core.ErrConfigInvalid)
	}

	cfg.Report.Format = strings.ToLower(cfg.Report.Format)
	if cfg.Report.Format == "" {
		cfg.Report.Format = "text"
	}
	if cfg.Report.Format != "json" && cfg.Report.Format != "text" {
		return fmt.Errorf("%w: invalid report format: %s (must be json/text)", core.ErrConfigInvalid, cfg.Report.Format)
	}

	if cfg.Capture.Limit < 0 {
		return fmt.Errorf("%w: capture.limit must not be negative, got %d", core.ErrConfigInvalid, cfg.Capture.Limit)
	}
	cfg.Filter.Expression = strings.TrimSpace(cfg.Filter.Expression)

	return nil
}
