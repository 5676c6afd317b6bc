package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/finsight/finsight-api/internal/app"
	"github.com/finsight/finsight-api/pkg/config"
	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Build today's composite snapshot once and print it",
	Long: `Builds the daily market snapshot (macro panel, sentiment, prediction
markets, headline quotes) exactly as the /api/snapshot endpoint would, caches
it under today's key, and prints the result as JSON. Useful for warming the
cache from a scheduler before the first user request of the day.`,
	RunE: runSnapshot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer func() {
		_ = application.Shutdown()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	snap, err := application.Service().DailySnapshot(ctx)
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	return nil
}
