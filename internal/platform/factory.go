// Package platform builds the client for a trading platform from the journal configuration.
package platform

import (
	"fmt"

	"trading-journal/internal/demo"
	"trading-journal/internal/interfaces"
	"trading-journal/internal/platform/ctrader"
	"trading-journal/internal/platform/dxtrade"
	"trading-journal/internal/platform/fallback"
	"trading-journal/internal/platform/matchtrader"
	"trading-journal/internal/platform/metatrader"
	"trading-journal/internal/platform/platformobs"
	"trading-journal/internal/store"
	"trading-journal/internal/types"
)

// New returns the bare vendor adapter for p
func New(p types.Platform, cfg *store.Config) (interfaces.PlatformClient, error) {
	pc := cfg.Platform(p)

	switch p {
	case types.PlatformMT4, types.PlatformMT5:
		return metatrader.New(p, pc)
	case types.PlatformCTrader:
		return ctrader.New(pc), nil
	case types.PlatformDXtrade:
		return dxtrade.New(pc), nil
	case types.PlatformMatchTrader:
		return matchtrader.New(pc), nil
	}
	return nil, fmt.Errorf("unsupported platform: %s", p)
}

// Factory builds fully wired clients: DEMO mode serves demo data only,
// otherwise the vendor adapter is observed and, when enabled, backed by demo data.
type Factory struct {
	cfg *store.Config
	gen *demo.Generator
}

func NewFactory(cfg *store.Config, gen *demo.Generator) *Factory {
	return &Factory{cfg: cfg, gen: gen}
}

func (f *Factory) Client(p types.Platform) (interfaces.PlatformClient, error) {
	if f.cfg.DemoMode() {
		return fallback.Demo(p, f.gen), nil
	}

	raw, err := New(p, f.cfg)
	if err != nil {
		return nil, err
	}

	client := platformobs.Wrap(raw)
	if f.cfg.FallbackToDemo {
		return fallback.Wrap(client, f.gen), nil
	}
	return client, nil
}
