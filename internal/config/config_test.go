package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "normal", cfg.Mode)
	assert.True(t, cfg.Rules)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Missing(t *testing.T) {
	t.Setenv("MEADOW_LOG_LEVEL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Fields(t *testing.T) {
	t.Setenv("MEADOW_LOG_LEVEL", "")
	path := writeConfig(t, `log_level: debug
mode: isolated
widget_globals: [speed, population]
disabled_validators: [naming]
unsupported: [hubnet-send]
node_budget: 5000
rules_dir: rules
rules: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	want := &Config{
		LogLevel:           "debug",
		Mode:               "isolated",
		WidgetGlobals:      []string{"speed", "population"},
		DisabledValidators: []string{"naming"},
		Unsupported:        []string{"hubnet-send"},
		NodeBudget:         5000,
		RulesDir:           filepath.Join(filepath.Dir(path), "rules"),
		Rules:              false,
	}
	assert.Equal(t, want, cfg)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	t.Setenv("MEADOW_LOG_LEVEL", "")
	cfg, err := Load(writeConfig(t, "node_budget: 10\n"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.NodeBudget)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.Rules)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MEADOW_LOG_LEVEL", "error")
	cfg, err := Load(writeConfig(t, "log_level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("MEADOW_LOG_LEVEL", "")
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "mode: [unclosed\n"},
		{"mode", "mode: detached\n"},
		{"level", "log_level: loud\n"},
		{"budget", "node_budget: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	t.Setenv("MEADOW_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), FileName)
	cfg := Default()
	cfg.Unsupported = []string{"beep"}
	cfg.RulesDir = "/abs/rules"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestCacheKey(t *testing.T) {
	a := Default()
	b := Default()
	assert.Equal(t, a.CacheKey(), b.CacheKey())

	b.DisabledValidators = []string{"naming"}
	assert.NotEqual(t, a.CacheKey(), b.CacheKey())

	c := Default()
	c.LogLevel = "debug"
	assert.Equal(t, a.CacheKey(), c.CacheKey(), "log level does not affect results")
}

func TestNewLogger(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		cfg := Default()
		cfg.LogLevel = lvl
		l, err := cfg.NewLogger()
		require.NoError(t, err, lvl)
		require.NotNil(t, l)
	}

	cfg := Default()
	cfg.LogLevel = "loud"
	_, err := cfg.NewLogger()
	require.Error(t, err)
}
