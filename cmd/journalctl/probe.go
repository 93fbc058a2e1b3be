package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trading-journal/internal/demo"
	"trading-journal/internal/platform"
	"trading-journal/internal/store"
	"trading-journal/internal/types"
)

type probeResult struct {
	Account      types.TradingAccount `json:"account"`
	Open         []types.Trade        `json:"open"`
	Closed       []types.Trade        `json:"closed"`
	UsedFallback bool                 `json:"usedFallback"`
}

func newProbeCmd(root *rootOptions) *cobra.Command {
	var (
		platformName string
		creds        types.Credentials
		baseURL      string
		days         int
		noFallback   bool
		demoMode     bool
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Connect once with the given credentials and print the normalized data",
		Example: `  journalctl probe --platform mt5 --login 5001234 --password investor --server ICMarkets-Demo
  journalctl probe --platform ctrader --access-token $CT_TOKEN --account 3100001 --days 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := types.ParsePlatform(platformName)
			if err != nil {
				return err
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if noFallback {
				cfg.FallbackToDemo = false
			}
			if demoMode {
				cfg.Mode = "DEMO"
			}
			if baseURL != "" {
				overrideBaseURL(cfg, p, baseURL)
			}
			if days <= 0 {
				days = cfg.Sync.HistoryDays
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res, err := probe(ctx, cfg, p, creds, time.Duration(days)*24*time.Hour)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.StringVar(&platformName, "platform", "", "MT4, MT5, CTRADER, DXTRADE or MATCHTRADER")
	f.StringVar(&creds.Login, "login", "", "MetaTrader login")
	f.StringVar(&creds.Password, "password", "", "investor or account password")
	f.StringVar(&creds.Server, "server", "", "MetaTrader server")
	f.StringVar(&creds.AccountNumber, "account", "", "account number (cTrader, DXtrade, MatchTrader)")
	f.StringVar(&creds.AccessToken, "access-token", "", "cTrader OAuth access token")
	f.StringVar(&creds.Username, "username", "", "DXtrade username")
	f.StringVar(&creds.Domain, "domain", "", "DXtrade domain")
	f.StringVar(&creds.Email, "email", "", "MatchTrader email")
	f.StringVar(&creds.BrokerID, "broker-id", "", "MatchTrader broker id")
	f.StringVar(&baseURL, "base-url", "", "override the platform base URL")
	f.IntVar(&days, "days", 0, "closed trade history in days (default sync.history_days)")
	f.BoolVar(&noFallback, "no-fallback", false, "report platform errors instead of serving demo data")
	f.BoolVar(&demoMode, "demo", false, "serve demo data without calling the platform")
	f.DurationVar(&timeout, "timeout", time.Minute, "overall probe timeout")
	_ = cmd.MarkFlagRequired("platform")

	return cmd
}

func overrideBaseURL(cfg *store.Config, p types.Platform, baseURL string) {
	if cfg.Platforms == nil {
		cfg.Platforms = make(map[string]store.PlatformConfig)
	}
	key := strings.ToLower(string(p))
	pc := cfg.Platforms[key]
	pc.BaseURL = baseURL
	cfg.Platforms[key] = pc
}

func probe(ctx context.Context, cfg *store.Config, p types.Platform, creds types.Credentials, window time.Duration) (probeResult, error) {
	factory := platform.NewFactory(cfg, demo.NewGenerator(cfg.Sync.DemoTrades))
	client, err := factory.Client(p)
	if err != nil {
		return probeResult{}, err
	}
	defer client.Close(context.WithoutCancel(ctx))

	if err := client.Authenticate(ctx, creds); err != nil {
		return probeResult{}, fmt.Errorf("authenticate: %w", err)
	}

	var res probeResult
	if res.Account, err = client.FetchAccount(ctx); err != nil {
		return probeResult{}, err
	}
	if res.Open, err = client.FetchOpenTrades(ctx); err != nil {
		return probeResult{}, err
	}
	to := time.Now().UTC()
	if res.Closed, err = client.FetchClosedTrades(ctx, to.Add(-window), to); err != nil {
		return probeResult{}, err
	}

	if counter, ok := client.(interface{ Served() uint64 }); ok {
		res.UsedFallback = counter.Served() > 0
	}
	res.UsedFallback = res.UsedFallback || res.Account.IsDemo
	return res, nil
}
