package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"trading-journal/internal/eod"
	"trading-journal/internal/journal"
	"trading-journal/internal/statement"
	"trading-journal/internal/types"
)

func newImportCmd(root *rootOptions) *cobra.Command {
	var (
		accountID    string
		platformName string
		file         string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a MetaTrader HTML statement into the journal",
		Long: `Reads a MetaTrader "Detailed Statement" HTML export and replaces the
account's stored trades with its rows. The account is created when it does
not exist yet.`,
		Example: `  journalctl import --account 7f3c... --file Statement.htm
  journalctl import --account mt4-main --platform mt4 --file DetailedStatement.htm`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := eod.ValidateAccountID(accountID); err != nil {
				return err
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "sqlite" {
				return errors.New("import writes the sqlite store; set storage.driver: sqlite")
			}
			p, err := types.ParsePlatform(platformName)
			if err != nil {
				return err
			}
			if !p.IsMetaTrader() {
				return errors.New("statements are MetaTrader exports; --platform must be mt4 or mt5")
			}

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			stmt, err := statement.Parse(f, accountID)
			if err != nil {
				return err
			}

			st, err := journal.OpenSQLite(cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			acc, found, err := st.GetAccount(ctx, accountID)
			if err != nil {
				return err
			}
			if !found {
				acc = types.TradingAccount{
					ID:       accountID,
					Platform: p,
					Status:   types.StatusDisconnected,
				}
			}
			if stmt.Name != "" {
				acc.Name = stmt.Name
			}
			if stmt.AccountNumber != "" {
				acc.AccountNumber = stmt.AccountNumber
			}
			if stmt.Currency != "" {
				acc.Currency = stmt.Currency
			}
			if stmt.Balance != 0 {
				acc.Balance = stmt.Balance
			}
			if stmt.Equity != 0 {
				acc.Equity = stmt.Equity
			}
			acc.LastUpdated = time.Now().UTC()

			if err := st.SaveAccount(ctx, acc); err != nil {
				return err
			}
			if err := st.ReplaceTrades(ctx, accountID, stmt.Trades); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: imported %d trade(s), skipped %d row(s)\n", accountID, len(stmt.Trades), len(stmt.Skipped))
			for _, s := range stmt.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "  ticket %s: %s\n", s.Ticket, s.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "journal account id")
	cmd.Flags().StringVar(&platformName, "platform", "mt4", "mt4 or mt5")
	cmd.Flags().StringVar(&file, "file", "", "statement .htm file")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
