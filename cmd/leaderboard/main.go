// Package main is the entry point of the trader leaderboard service and its
// terminal client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:          "leaderboard",
		Short:        "Trader leaderboard views",
		Long:         `Serves and renders the trader leaderboard: sortable, searchable tables gated by a connected wallet.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (optional)")

	rootCmd.AddCommand(newServeCmd(), newShowCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
