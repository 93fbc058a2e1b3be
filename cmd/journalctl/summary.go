package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trading-journal/internal/eod"
	"trading-journal/internal/journal"
)

func newSummaryCmd(root *rootOptions) *cobra.Command {
	var (
		accountID string
		date      string
		dir       string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Write the end-of-day CSV summary of an account's closed trades",
		Example: `  journalctl summary --account 7f3c... --date 2024-03-05
  journalctl summary --dir ./reports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "sqlite" {
				return errors.New("summary reads the sqlite store; set storage.driver: sqlite")
			}

			day := time.Now().UTC().AddDate(0, 0, -1)
			if date != "" {
				if day, err = time.Parse("2006-01-02", date); err != nil {
					return fmt.Errorf("bad --date: %w", err)
				}
			}

			st, err := journal.OpenSQLite(cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			summarizer := eod.NewSummarizer(st, dir)
			ids := []string{accountID}
			if accountID == "" {
				accs, err := st.ListAccounts(cmd.Context())
				if err != nil {
					return err
				}
				ids = ids[:0]
				for _, a := range accs {
					ids = append(ids, a.ID)
				}
			}

			for _, id := range ids {
				path, err := summarizer.SummarizeDay(cmd.Context(), id, day)
				if err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				if path == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: no closed trades on %s\n", id, day.Format("2006-01-02"))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "journal account id (default every account)")
	cmd.Flags().StringVar(&date, "date", "", "UTC day as YYYY-MM-DD (default yesterday)")
	cmd.Flags().StringVar(&dir, "dir", "", "output root (default JOURNAL_LOG_DIR or logs)")
	return cmd
}
