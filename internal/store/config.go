package store

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"trading-journal/internal/types"
)

type PlatformConfig struct {
	BaseURL        string  `yaml:"base_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RetryCount     int     `yaml:"retry_count"`
	RatePerSecond  int     `yaml:"rate_per_second"`
	VolumeScale    int64   `yaml:"volume_scale"`
	ContractSize   float64 `yaml:"contract_size"`
}

func (p PlatformConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

type BridgeConfig struct {
	Enabled              bool   `yaml:"enabled"`
	URL                  string `yaml:"url"`
	Login                string `yaml:"login"`
	TokenEnv             string `yaml:"token_env"`
	Platform             string `yaml:"platform"`
	PollSeconds          int    `yaml:"poll_seconds"`
	MaxReconnectAttempts int    `yaml:"max_reconnect_attempts"`
	BaseBackoffMillis    int    `yaml:"base_backoff_ms"`
	MaxBackoffSeconds    int    `yaml:"max_backoff_seconds"`
}

type Config struct {
	Mode           string                    `yaml:"mode"`
	FallbackToDemo bool                      `yaml:"fallback_to_demo"`
	Platforms      map[string]PlatformConfig `yaml:"platforms"`
	Bridge         BridgeConfig              `yaml:"bridge"`
	Sync           struct {
		IntervalSeconds int `yaml:"interval_seconds"`
		HistoryDays     int `yaml:"history_days"`
		DemoTrades      int `yaml:"demo_trades"`
	} `yaml:"sync"`
	Storage struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"storage"`
	Vault struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
		KeyEnv string `yaml:"key_env"`
	} `yaml:"vault"`
	HTTP struct {
		Listen string `yaml:"listen"`
	} `yaml:"http"`
}

// Platform returns the settings for p with defaults filled in.
func (c *Config) Platform(p types.Platform) PlatformConfig {
	pc := c.Platforms[strings.ToLower(string(p))]
	if pc.TimeoutSeconds == 0 {
		pc.TimeoutSeconds = 30
	}
	if pc.RetryCount == 0 {
		pc.RetryCount = 2
	}
	if pc.RatePerSecond == 0 {
		pc.RatePerSecond = 5
	}
	if pc.BaseURL == "" {
		pc.BaseURL = defaultBaseURLs[p]
	}
	return pc
}

var defaultBaseURLs = map[types.Platform]string{
	types.PlatformMT4:         "https://mt4.mtapi.io",
	types.PlatformMT5:         "https://mt5.mtapi.io",
	types.PlatformCTrader:     "https://api.spotware.com",
	types.PlatformDXtrade:     "https://demo.dx.trade",
	types.PlatformMatchTrader: "https://mtr-demo-prod.match-trader.com",
}

func (c *Config) HistoryWindow() time.Duration {
	return time.Duration(c.Sync.HistoryDays) * 24 * time.Hour
}

func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalSeconds) * time.Second
}

func (c *Config) DemoMode() bool {
	return c.Mode == "DEMO"
}

func (c *Config) Validate() error {
	if c.Mode != "LIVE" && c.Mode != "DEMO" {
		return fmt.Errorf("invalid mode '%s': must be 'LIVE' or 'DEMO'", c.Mode)
	}
	for name := range c.Platforms {
		if _, err := types.ParsePlatform(name); err != nil {
			return fmt.Errorf("platforms.%s: %w", name, err)
		}
	}
	if c.Storage.Driver != "memory" && c.Storage.Driver != "sqlite" {
		return fmt.Errorf("storage.driver must be 'memory' or 'sqlite', got '%s'", c.Storage.Driver)
	}
	if c.Storage.Driver == "sqlite" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the sqlite driver")
	}
	if c.Vault.Driver != "memory" && c.Vault.Driver != "badger" {
		return fmt.Errorf("vault.driver must be 'memory' or 'badger', got '%s'", c.Vault.Driver)
	}
	if c.Vault.Driver == "badger" && c.Vault.Path == "" {
		return fmt.Errorf("vault.path is required for the badger driver")
	}
	if c.Sync.HistoryDays <= 0 || c.Sync.HistoryDays > 3650 {
		return fmt.Errorf("sync.history_days must be between 1-3650, got %d", c.Sync.HistoryDays)
	}
	if c.Bridge.Enabled {
		if c.Bridge.URL == "" {
			return fmt.Errorf("bridge.url is required when the bridge is enabled")
		}
		if !strings.HasPrefix(c.Bridge.URL, "ws://") && !strings.HasPrefix(c.Bridge.URL, "wss://") {
			return fmt.Errorf("bridge.url must be a ws:// or wss:// URL, got '%s'", c.Bridge.URL)
		}
		if p, err := types.ParsePlatform(c.Bridge.Platform); err != nil || !p.IsMetaTrader() {
			return fmt.Errorf("bridge.platform must be MT4 or MT5, got '%s'", c.Bridge.Platform)
		}
	}
	return nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{FallbackToDemo: true}
	applyDefaults(c)
	return c
}

func applyDefaults(c *Config) {
	if c.Mode == "" {
		c.Mode = "LIVE"
	}
	if c.Sync.IntervalSeconds == 0 {
		c.Sync.IntervalSeconds = 300
	}
	if c.Sync.HistoryDays == 0 {
		c.Sync.HistoryDays = 90
	}
	if c.Sync.DemoTrades == 0 {
		c.Sync.DemoTrades = 25
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Vault.Driver == "" {
		c.Vault.Driver = "memory"
	}
	if c.Vault.KeyEnv == "" {
		c.Vault.KeyEnv = "JOURNAL_VAULT_KEY"
	}
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = ":8080"
	}
	if c.Bridge.Platform == "" {
		c.Bridge.Platform = "MT5"
	}
	if c.Bridge.TokenEnv == "" {
		c.Bridge.TokenEnv = "MT_BRIDGE_TOKEN"
	}
	if c.Bridge.PollSeconds == 0 {
		c.Bridge.PollSeconds = 5
	}
	if c.Bridge.MaxReconnectAttempts == 0 {
		c.Bridge.MaxReconnectAttempts = 5
	}
	if c.Bridge.BaseBackoffMillis == 0 {
		c.Bridge.BaseBackoffMillis = 1000
	}
	if c.Bridge.MaxBackoffSeconds == 0 {
		c.Bridge.MaxBackoffSeconds = 30
	}
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (*Config, error) {
	c := Config{FallbackToDemo: true}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	applyDefaults(&c)

	// Platform keys are matched case-insensitively
	if len(c.Platforms) > 0 {
		normalized := make(map[string]PlatformConfig, len(c.Platforms))
		for k, v := range c.Platforms {
			if p, err := types.ParsePlatform(k); err == nil {
				k = string(p)
			}
			normalized[strings.ToLower(k)] = v
		}
		c.Platforms = normalized
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
