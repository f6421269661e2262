package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STRATALPHA_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "NVDA", cfg.DefaultTicker)
	assert.Equal(t, DefaultPeerTickers, cfg.PeerTickers)
	assert.Equal(t, DefaultShockTickers, cfg.ShockTickers)
	assert.InDelta(t, -0.10, cfg.ShockPct, 1e-12)
	assert.False(t, cfg.Backup.Enabled)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STRATALPHA_DATA_DIR", t.TempDir())
	t.Setenv("STRATALPHA_PORT", "9090")
	t.Setenv("RISK_PEER_TICKERS", "amd, tsm")
	t.Setenv("SHOCK_PCT", "-0.25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"AMD", "TSM"}, cfg.PeerTickers)
	assert.InDelta(t, -0.25, cfg.ShockPct, 1e-12)
}

func TestLoad_InvalidShockPct(t *testing.T) {
	t.Setenv("STRATALPHA_DATA_DIR", t.TempDir())
	t.Setenv("SHOCK_PCT", "-2.5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHOCK_PCT")
}

func TestLoad_BackupRequiresBucket(t *testing.T) {
	t.Setenv("STRATALPHA_DATA_DIR", t.TempDir())
	t.Setenv("BACKUP_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKUP_BUCKET")
}
