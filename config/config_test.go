package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ValidAndComplete(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, time.Second, cfg.TickInterval())
	assert.Equal(t, 120, cfg.Engine.SnapshotWindow)
	assert.Equal(t, 0.25, cfg.Sizing.KellyMultiplier)
	assert.Equal(t, 0.7, cfg.Sizing.SameGameCorrelation)
	assert.Equal(t, 0.5, cfg.Risk.StreakReductionFactor)
	assert.Equal(t, "geobet.db", cfg.Storage.DSN)
}

func TestLoad_AppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  ticks_per_second: 4\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, 0.05, cfg.Sizing.MaxBetFraction) // default intacto
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sizing:\n  kelly_multiplier: 1.5\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "kelly_multiplier")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEOBET_DSN", ":memory:")
	t.Setenv("LOG_LEVEL", "debug")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
}
