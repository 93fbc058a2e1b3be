package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"trading-journal/internal/accounts"
	"trading-journal/internal/accounts/accountsobs"
	"trading-journal/internal/bridge"
	"trading-journal/internal/demo"
	"trading-journal/internal/eod"
	"trading-journal/internal/eod/eodobs"
	"trading-journal/internal/interfaces"
	"trading-journal/internal/journal"
	"trading-journal/internal/logger"
	"trading-journal/internal/platform"
	"trading-journal/internal/store"
	"trading-journal/internal/trace"
	"trading-journal/internal/tradelog"
	"trading-journal/internal/vault"
)

// initializeSystem loads .env, then starts the logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs gzips sync event logs past JOURNAL_LOG_RETENTION_DAYS
func compressOldLogs(ctx context.Context) {
	v := os.Getenv("JOURNAL_LOG_RETENTION_DAYS")
	if v == "" {
		return
	}
	days, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn(ctx, "Ignoring invalid JOURNAL_LOG_RETENTION_DAYS", "value", v)
		return
	}
	n, err := tradelog.CompressOlder(days)
	if err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
		return
	}
	if n > 0 {
		logger.Info(ctx, "Compressed old sync logs", "files", n)
	}
}

func initializeStore(ctx context.Context, cfg *store.Config) (interfaces.AccountStore, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		st, err := journal.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info(ctx, "Using SQLite account store", "path", cfg.Storage.Path)
		return st, nil
	default:
		logger.Warn(ctx, "Using in-memory account store - accounts are lost on restart")
		return journal.NewMemory(), nil
	}
}

func initializeVault(ctx context.Context, cfg *store.Config) (interfaces.CredentialVault, error) {
	switch cfg.Vault.Driver {
	case "badger":
		key, err := vault.ParseKey(os.Getenv(cfg.Vault.KeyEnv))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Vault.KeyEnv, err)
		}
		if key == nil {
			logger.Warn(ctx, "Credential vault is not encrypted", "key_env", cfg.Vault.KeyEnv)
		}
		v, err := vault.OpenBadger(vault.OpenOptions{Path: cfg.Vault.Path, EncryptionKey: key})
		if err != nil {
			return nil, fmt.Errorf("open badger vault: %w", err)
		}
		logger.Info(ctx, "Using Badger credential vault", "path", cfg.Vault.Path, "encrypted", key != nil)
		return v, nil
	default:
		return vault.NewMemory(), nil
	}
}

// initializeService builds the account service with observability
func initializeService(ctx context.Context, cfg *store.Config, st interfaces.AccountStore, v interfaces.CredentialVault) (*accounts.Service, interfaces.AccountService) {
	gen := demo.NewGenerator(cfg.Sync.DemoTrades)
	factory := platform.NewFactory(cfg, gen)

	if cfg.DemoMode() {
		logger.Warn(ctx, "Running in DEMO mode - every platform serves generated data")
	} else if cfg.FallbackToDemo {
		logger.Info(ctx, "Platform failures fall back to demo data")
	}

	svc := accounts.New(cfg, factory, st, v)
	return svc, accountsobs.Wrap(svc)
}

// initializeBridge returns nil when the bridge is disabled
func initializeBridge(ctx context.Context, cfg *store.Config) (interfaces.Bridge, error) {
	if !cfg.Bridge.Enabled {
		return nil, nil
	}

	b, err := bridge.New(cfg.Bridge, os.Getenv(cfg.Bridge.TokenEnv))
	if err != nil {
		return nil, err
	}
	if err := b.Start(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// initializeEOD returns the end-of-day summarizer with observability
func initializeEOD(st interfaces.AccountStore) interfaces.EodSummarizer {
	return eodobs.Wrap(eod.NewSummarizer(st, ""))
}

// runEOD writes yesterday's summaries once they are due, checking every minute
func runEOD(ctx context.Context, summarizer interfaces.EodSummarizer) {
	tick := time.NewTicker(time.Minute)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			_, _ = summarizer.SummarizeDue(ctx, now)
		}
	}
}
