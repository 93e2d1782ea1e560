package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/database"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/logger"
	"trade-journal-go/internal/quote"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the trading journal HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return fmt.Errorf("could not initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log.Info("Configuration loaded")

	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return err
	}
	log.Info("Database connection successful and schema migrated.")

	quoteClient := quote.NewClient(&cfg.Quotes, log.Named("quote-client"))
	quoteService := quote.NewService(quoteClient, quote.OptionsFromConfig(&cfg.Quotes), log.Named("quote-service"))

	journalService := journal.NewService(db, quoteService, cfg.Quotes.PriceBatchSize, log.Named("journal"))

	apiServer := journal.NewAPIServer(journalService, cfg.Server.Port, cfg.Server.CORSOrigin, log)
	apiServer.Start()

	// Wait for a shutdown signal
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Stop(ctx); err != nil {
		log.Error("Failed to stop API server cleanly", zap.Error(err))
		return err
	}

	log.Info("Journal has been shut down.")
	return nil
}
