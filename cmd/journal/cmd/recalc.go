package cmd

import (
	"fmt"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/database"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recalculate tax, margin interest and net profit for closed trades",
	Long: `Re-derives the persisted settlement figures of every closed trade
from its snapshotted rates (falling back to the current risk settings
for trades recorded before rates were snapshotted). Back up the
database file before running this against real data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecalc()
	},
}

func init() {
	rootCmd.AddCommand(recalcCmd)
}

func runRecalc() error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return fmt.Errorf("could not initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return err
	}

	// No quote service needed: recalculation only touches closed trades.
	service := journal.NewService(db, nil, cfg.Quotes.PriceBatchSize, log.Named("journal"))

	updated, err := service.RecalculateClosedTrades()
	if err != nil {
		log.Error("Recalculation failed", zap.Error(err))
		return err
	}

	fmt.Printf("Recalculated %d closed trades\n", updated)
	return nil
}
