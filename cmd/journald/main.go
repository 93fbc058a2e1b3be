package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading-journal/internal/httpapi"
	"trading-journal/internal/logger"
	"trading-journal/internal/trace"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := initializeSystem(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(*configPath); err != nil {
		logger.ErrorWithErr(context.Background(), "journald exited", err)
		_ = logger.Shutdown(context.Background())
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return err
	}

	compressOldLogs(ctx)

	st, err := initializeStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	v, err := initializeVault(ctx, cfg)
	if err != nil {
		return err
	}
	defer v.Close()

	svc, api := initializeService(ctx, cfg, st, v)

	brg, err := initializeBridge(ctx, cfg)
	if err != nil {
		return err
	}

	go svc.AutoSync(ctx, cfg.SyncInterval())
	go runEOD(ctx, initializeEOD(st))

	logger.Info(ctx, "journald started",
		"mode", cfg.Mode,
		"storage", cfg.Storage.Driver,
		"vault", cfg.Vault.Driver,
		"bridge", cfg.Bridge.Enabled,
		"sync_interval", cfg.SyncInterval(),
		"version", trace.Version,
	)

	serveErr := httpapi.New(api, brg).ListenAndServe(ctx, cfg.HTTP.Listen)

	logger.Info(ctx, "Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if brg != nil {
		brg.Stop(shutdownCtx)
	}
	svc.Close(shutdownCtx)
	if err := trace.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "Tracer shutdown failed", "error", err)
	}
	_ = logger.Shutdown(shutdownCtx)

	return serveErr
}
