package main

import (
	"github.com/spf13/cobra"

	"trading-journal/internal/demo"
	"trading-journal/internal/types"
)

func newDemoCmd(root *rootOptions) *cobra.Command {
	var (
		platformName string
		account      string
		trades       int
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Print the demo account and trades served for an account",
		Long: `Print the deterministic demo data the journal falls back to.

The same platform and account always produce the same trades on a given UTC day.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := types.ParsePlatform(platformName)
			if err != nil {
				return err
			}
			if trades <= 0 {
				cfg, err := root.loadConfig()
				if err != nil {
					return err
				}
				trades = cfg.Sync.DemoTrades
			}

			gen := demo.NewGenerator(trades)
			creds := types.Credentials{AccountNumber: account}
			return printJSON(cmd.OutOrStdout(), struct {
				Account types.TradingAccount `json:"account"`
				Trades  []types.Trade        `json:"trades"`
			}{
				Account: gen.Account(p, creds),
				Trades:  gen.Trades(p, creds),
			})
		},
	}

	cmd.Flags().StringVar(&platformName, "platform", "MT5", "platform to generate for")
	cmd.Flags().StringVar(&account, "account", "", "account number used as the seed")
	cmd.Flags().IntVar(&trades, "trades", 0, "number of trades (default sync.demo_trades)")
	return cmd
}
