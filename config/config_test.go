package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/fairpath/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 200.0, cfg.Analysis.Alpha)
	assert.Equal(t, 1.0, cfg.Analysis.Beta)
	assert.Equal(t, 20, cfg.Analysis.EMASpan)
	assert.Equal(t, 25, cfg.Frozen.Lag)
	assert.Equal(t, 100, cfg.Frozen.MinPoints)
	assert.Equal(t, 252, cfg.ZScore.Window)
	assert.Equal(t, 1e-6, cfg.ZScore.Epsilon)
	assert.Equal(t, -0.3, *cfg.Backtest.SumThreshold)
	assert.Equal(t, -999.0, *cfg.Backtest.Sentinel)
	assert.Equal(t, 252, *cfg.Analysis.Window)
	assert.Equal(t, 10, *cfg.Frozen.GhostHorizon)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.MaxAge())
	assert.True(t, cfg.StartDate().IsZero())
}

func TestLoad_YAML(t *testing.T) {
	path := writeYAML(t, `
analysis:
  alpha: 50
  start_date: "2023-01-01"
frozen:
  lookback: 500
  ghost_horizon: 10
storage:
  driver: sqlite
  dsn: ":memory:"
scanner:
  tickers: [SPY, QQQ]
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50.0, cfg.Analysis.Alpha)
	assert.Equal(t, 1.0, cfg.Analysis.Beta, "defaults fill missing keys")
	assert.Equal(t, 500, cfg.Frozen.Lookback)
	assert.Equal(t, 10, *cfg.Frozen.GhostHorizon)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, []string{"SPY", "QQQ"}, cfg.Scanner.Tickers)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), cfg.StartDate())
}

func TestLoad_ExplicitZeroIsKept(t *testing.T) {
	cfg, err := config.Load(writeYAML(t, `
analysis:
  spectral_window: 0
frozen:
  ghost_horizon: 0
backtest:
  sum_threshold: 0
  sentinel: 0
`))
	require.NoError(t, err)
	assert.Equal(t, 0, *cfg.Analysis.Window)
	assert.Equal(t, 0, *cfg.Frozen.GhostHorizon)
	assert.Equal(t, 0.0, *cfg.Backtest.SumThreshold)
	assert.Equal(t, 0.0, *cfg.Backtest.Sentinel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FAIRPATH_DATA_DIR", "/tmp/prices")
	t.Setenv("FAIRPATH_DB", "/tmp/fp.db")
	t.Setenv("FAIRPATH_WORKERS", "3")

	cfg, err := config.Load(writeYAML(t, "log:\n  level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/prices", cfg.Data.Dir)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/fp.db", cfg.Storage.DSN)
	assert.Equal(t, 3, cfg.Frozen.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := config.Load(writeYAML(t, "analysis: [unclosed"))
	assert.Error(t, err)

	_, err = config.Load(writeYAML(t, "analysis:\n  start_date: yesterday\n"))
	assert.Error(t, err)

	_, err = config.Load(writeYAML(t, "storage:\n  driver: redis\n"))
	assert.Error(t, err)
}
