package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "journal",
	Short: "A personal trading journal with live position tracking",
	Long: `Journal records discretionary stock trades, tracks open positions
against live market quotes, computes settlement figures (P&L, tax,
margin interest) on close, and aggregates closed trades into
performance analytics.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./configs", "directory containing config.yml")
}
