// Package config loads .meadow.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// FileName is the config file the CLI looks for in the working directory.
const FileName = ".meadow.yaml"

// Config holds meadow's settings.
type Config struct {
	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// Mode is how checked files join the linked session's group: normal or
	// isolated.
	Mode string `yaml:"mode"`

	// WidgetGlobals are globals defined by interface widgets rather than
	// the source.
	WidgetGlobals []string `yaml:"widget_globals,omitempty"`

	DisabledValidators []string `yaml:"disabled_validators,omitempty"`

	// Unsupported names primitives the execution target cannot run.
	Unsupported []string `yaml:"unsupported,omitempty"`

	// NodeBudget caps the nodes parsed per file. Zero means no cap.
	NodeBudget int `yaml:"node_budget,omitempty"`

	// RulesDir holds extra .risor rule scripts, relative to the config file.
	RulesDir string `yaml:"rules_dir,omitempty"`

	// Rules enables the rule scripts shipped with meadow.
	Rules bool `yaml:"rules"`
}

// Default returns the configuration used when there is no config file.
func Default() *Config {
	return &Config{
		LogLevel: "warn",
		Mode:     "normal",
		Rules:    true,
	}
}

// Load reads the config at path over the defaults. A missing file yields
// the defaults. MEADOW_LOG_LEVEL overrides log_level.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("config: read: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if cfg.RulesDir != "" && !filepath.IsAbs(cfg.RulesDir) {
			cfg.RulesDir = filepath.Join(filepath.Dir(path), cfg.RulesDir)
		}
	}

	if lvl := os.Getenv("MEADOW_LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

// Validate checks the enumerated fields.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	switch c.Mode {
	case "", "normal", "isolated":
	default:
		return fmt.Errorf("config: mode %q: want normal or isolated", c.Mode)
	}
	if c.NodeBudget < 0 {
		return fmt.Errorf("config: node_budget %d is negative", c.NodeBudget)
	}
	return nil
}

// CacheKey identifies the settings that change diagnostics without changing
// any rule script. Results stored under another key are stale.
func (c *Config) CacheKey() string {
	return strings.Join([]string{
		"mode=" + c.Mode,
		"widgets=" + strings.Join(c.WidgetGlobals, ","),
		"disabled=" + strings.Join(c.DisabledValidators, ","),
		"unsupported=" + strings.Join(c.Unsupported, ","),
		fmt.Sprintf("budget=%d", c.NodeBudget),
	}, ";")
}

// NewLogger builds a console logger writing to stderr at the configured
// level. Debug adds caller and development settings.
func (c *Config) NewLogger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: log_level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.DisableStacktrace = lvl != zapcore.DebugLevel
	return zc.Build()
}
