package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Quotes   Quotes   `mapstructure:"quotes"`
	Risk     Risk     `mapstructure:"risk"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Quotes holds the configuration for the market data provider.
type Quotes struct {
	BaseURL         string  `mapstructure:"base_url"`
	RateLimit       int     `mapstructure:"rate_limit"`
	RateWindowSec   int     `mapstructure:"rate_window_sec"`
	OpenTTLSec      int     `mapstructure:"open_ttl_sec"`
	ClosedTTLSec    int     `mapstructure:"closed_ttl_sec"`
	FetchTimeoutSec int     `mapstructure:"fetch_timeout_sec"`
	ClientRate      float64 `mapstructure:"client_rate"`
	ClientBurst     int     `mapstructure:"client_burst"`
	PriceBatchSize  int     `mapstructure:"price_batch_size"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port       int    `mapstructure:"port"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Risk holds the default risk settings seeded into a fresh database.
// They are snapshotted onto trades at creation/close time, so changing
// them later never rewrites historical results.
type Risk struct {
	DefaultRSize       float64 `mapstructure:"default_r_size"`
	MaxOpenRisk        float64 `mapstructure:"max_open_risk"`
	MaxOpenPositions   int     `mapstructure:"max_open_positions"`
	StateTaxRate       float64 `mapstructure:"state_tax_rate"`
	FederalTaxRate     float64 `mapstructure:"federal_tax_rate"`
	MarginInterestRate float64 `mapstructure:"margin_interest_rate"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("quotes.base_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	viper.SetDefault("quotes.rate_limit", 10)      // requests per rolling window
	viper.SetDefault("quotes.rate_window_sec", 60) // window size in seconds
	viper.SetDefault("quotes.open_ttl_sec", 60)
	viper.SetDefault("quotes.closed_ttl_sec", 3600)
	viper.SetDefault("quotes.fetch_timeout_sec", 5)
	viper.SetDefault("quotes.client_rate", 5) // requests per second at the HTTP boundary
	viper.SetDefault("quotes.client_burst", 2)
	viper.SetDefault("quotes.price_batch_size", 5)
	viper.SetDefault("server.port", 3001)
	viper.SetDefault("database.dsn", "trades.db")
	viper.SetDefault("risk.default_r_size", 2500)
	viper.SetDefault("risk.max_open_risk", 2000)
	viper.SetDefault("risk.max_open_positions", 5)
	viper.SetDefault("risk.state_tax_rate", 0)
	viper.SetDefault("risk.federal_tax_rate", 25)
	viper.SetDefault("risk.margin_interest_rate", 0)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
