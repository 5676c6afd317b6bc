package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "finsight-api",
	Short: "Financial research data API",
	Long: `Financial research data API serving company fundamentals, market
quotes, macro series, sentiment, prediction-market odds and AI portfolio
assessments, all behind a TTL read-through cache over a durable key-value
store.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
