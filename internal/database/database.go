package database

import (
	"errors"
	"fmt"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db, cfg); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates the schema and seeds the single risk settings row
// from the configured defaults if it does not exist yet.
func AutoMigrate(db *gorm.DB, cfg *config.Config) error {
	if err := db.AutoMigrate(&models.Trade{}, &models.RiskSettings{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	var settings models.RiskSettings
	if err := db.First(&settings).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.RiskSettings{
			DefaultRSize:       cfg.Risk.DefaultRSize,
			MaxOpenRisk:        cfg.Risk.MaxOpenRisk,
			MaxOpenPositions:   cfg.Risk.MaxOpenPositions,
			StateTaxRate:       cfg.Risk.StateTaxRate,
			FederalTaxRate:     cfg.Risk.FederalTaxRate,
			MarginInterestRate: cfg.Risk.MarginInterestRate,
			EnableAlerts:       true,
		}
		if err := db.Create(&settings).Error; err != nil {
			return fmt.Errorf("failed to seed risk settings: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to read risk settings: %w", err)
	}

	return nil
}
