package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trading-journal/internal/trace"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "journalctl version %s\n", trace.Version)
		},
	}
}
