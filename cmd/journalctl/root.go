package main

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"trading-journal/internal/logger"
	"trading-journal/internal/store"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "journalctl",
		Short: "Operate the trading journal account sync",
		Long: `journalctl talks to trading platforms the same way journald does.

It can:
  - probe a platform with credentials and print the normalized account and trades
  - print the demo data served when a platform is unreachable
  - import MetaTrader HTML statements into the journal
  - write end-of-day summaries of closed trades
  - compress old sync event logs`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			return logger.Init()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "config file; defaults apply when it does not exist")

	cmd.AddCommand(
		newProbeCmd(opts),
		newDemoCmd(opts),
		newImportCmd(opts),
		newSummaryCmd(opts),
		newCompressLogsCmd(),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig reads the config file, falling back to defaults when it is missing
func (o *rootOptions) loadConfig() (*store.Config, error) {
	cfg, err := store.LoadConfig(o.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return store.Default(), nil
	}
	return cfg, err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
