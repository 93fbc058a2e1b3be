package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal/internal/types"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("mode: LIVE\n"))
	require.NoError(t, err)

	assert.True(t, cfg.FallbackToDemo)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "memory", cfg.Vault.Driver)
	assert.Equal(t, 90, cfg.Sync.HistoryDays)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval())
	assert.Equal(t, 5, cfg.Bridge.PollSeconds)
	assert.Equal(t, 5, cfg.Bridge.MaxReconnectAttempts)
	assert.Equal(t, 30, cfg.Bridge.MaxBackoffSeconds)
	assert.Equal(t, ":8080", cfg.HTTP.Listen)
}

func TestParseConfigPlatformKeys(t *testing.T) {
	raw := `
mode: DEMO
platforms:
  MetaTrader5:
    base_url: http://mt5.local
    timeout_seconds: 3
  match-trader:
    base_url: http://mtr.local
`
	cfg, err := ParseConfig([]byte(raw))
	require.NoError(t, err)

	mt5 := cfg.Platform(types.PlatformMT5)
	assert.Equal(t, "http://mt5.local", mt5.BaseURL)
	assert.Equal(t, 3*time.Second, mt5.Timeout())
	assert.Equal(t, 2, mt5.RetryCount)

	assert.Equal(t, "http://mtr.local", cfg.Platform(types.PlatformMatchTrader).BaseURL)
	assert.Equal(t, "https://api.spotware.com", cfg.Platform(types.PlatformCTrader).BaseURL)
	assert.True(t, cfg.DemoMode())
}

func TestParseConfigFallbackDisabled(t *testing.T) {
	cfg, err := ParseConfig([]byte("mode: LIVE\nfallback_to_demo: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.FallbackToDemo)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"mode":         "mode: PAPER\n",
		"platform":     "platforms:\n  ninjatrader:\n    base_url: x\n",
		"storage":      "storage:\n  driver: postgres\n",
		"sqlite path":  "storage:\n  driver: sqlite\n",
		"badger path":  "vault:\n  driver: badger\n",
		"bridge url":   "bridge:\n  enabled: true\n  url: http://localhost\n",
		"bridge plat":  "bridge:\n  enabled: true\n  url: ws://localhost\n  platform: CTRADER\n",
		"history days": "sync:\n  history_days: -4\n",
	}
	for name, raw := range cases {
		_, err := ParseConfig([]byte(raw))
		assert.Error(t, err, name)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: LIVE\nstorage:\n  driver: sqlite\n  path: j.db\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "j.db", cfg.Storage.Path)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
