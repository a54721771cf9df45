package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 1000, cfg.Pacing.MinDelayMs)
	require.Equal(t, 3000, cfg.Pacing.MaxDelayMs)
	require.Equal(t, time.Second, cfg.MinDelay())
	require.Equal(t, 3*time.Second, cfg.MaxDelay())
	require.Equal(t, 1, cfg.Harvest.MaxLoadRetries)
	require.Equal(t, 3, cfg.Harvest.MaxScrollStalls)
	require.Equal(t, 20, cfg.Harvest.MaxScrolls)
	require.True(t, cfg.Browser.Headless)
	require.Equal(t, 45, cfg.Browser.NavTimeoutSec)
	require.Equal(t, "./output", cfg.Export.OutputDir)
	require.Equal(t, "leads", cfg.DB.Table)
	require.False(t, cfg.Enrich.Enabled)
	require.Zero(t, cfg.Metrics.Port)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	payload := `
pacing:
  min_delay_ms: 200
  max_delay_ms: 500
  max_actions_per_sec: 2.5
harvest:
  max_scrolls: 5
enrich:
  enabled: true
  max_pages: 3
export:
  output_dir: /tmp/leads
metrics:
  port: 9091
`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 200, cfg.Pacing.MinDelayMs)
	require.Equal(t, 500, cfg.Pacing.MaxDelayMs)
	require.InDelta(t, 2.5, cfg.Pacing.MaxActionsPerSec, 0.001)
	require.Equal(t, 5, cfg.Harvest.MaxScrolls)
	require.True(t, cfg.Enrich.Enabled)
	require.Equal(t, 3, cfg.Enrich.MaxPages)
	require.Equal(t, "/tmp/leads", cfg.Export.OutputDir)
	require.Equal(t, 9091, cfg.Metrics.Port)
	// Untouched sections keep their defaults.
	require.Equal(t, 1, cfg.Harvest.MaxLoadRetries)
	require.Equal(t, "leads", cfg.DB.Table)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	cfg := base
	cfg.Pacing.MinDelayMs = -1
	require.Error(t, cfg.Validate())

	cfg = base
	cfg.Pacing.MinDelayMs = 500
	cfg.Pacing.MaxDelayMs = 100
	require.Error(t, cfg.Validate())

	cfg = base
	cfg.Harvest.MaxLoadRetries = -1
	require.Error(t, cfg.Validate())

	cfg = base
	cfg.Browser.NavTimeoutSec = 0
	require.Error(t, cfg.Validate())

	cfg = base
	cfg.Enrich.Enabled = true
	cfg.Enrich.MaxPages = 0
	require.Error(t, cfg.Validate())

	cfg = base
	cfg.Metrics.Port = -1
	require.Error(t, cfg.Validate())
}
