package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trading-journal/internal/tradelog"
)

func newCompressLogsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "compress-logs",
		Short: "Gzip sync event logs older than --days (directory from JOURNAL_LOG_DIR)",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := tradelog.CompressOlder(days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "compressed %d file(s)\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "keep this many days uncompressed")
	return cmd
}
