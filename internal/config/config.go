package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port         int
	LogLevel     string
	DevMode      bool
	DatabasePath string

	// Bybit API
	BybitAPIKey    string
	BybitAPISecret string
	BybitTestnet   bool

	// Trading limits
	MaxPositionSizeUSD decimal.Decimal
	MaxOpenPositions   int
	MaxLeverage        int

	// Execution mode
	EnablePaperTrading bool
	InitialBalance     decimal.Decimal

	// Background jobs
	PriceRefreshSeconds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	maxPositionSize, err := getEnvAsDecimal("MAX_POSITION_SIZE_USD", "1000")
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_POSITION_SIZE_USD: %w", err)
	}

	initialBalance, err := getEnvAsDecimal("INITIAL_BALANCE", "10000")
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_BALANCE: %w", err)
	}

	cfg := &Config{
		Port:                getEnvAsInt("GO_PORT", 8000),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		DatabasePath:        getEnv("DATABASE_PATH", "./data/futurebot.db"),
		BybitAPIKey:         getEnv("BYBIT_API_KEY", ""),
		BybitAPISecret:      getEnv("BYBIT_API_SECRET", ""),
		BybitTestnet:        getEnvAsBool("BYBIT_TESTNET", true),
		MaxPositionSizeUSD:  maxPositionSize,
		MaxOpenPositions:    getEnvAsInt("MAX_OPEN_POSITIONS", 3),
		MaxLeverage:         getEnvAsInt("MAX_LEVERAGE", 10),
		EnablePaperTrading:  getEnvAsBool("ENABLE_PAPER_TRADING", true),
		InitialBalance:      initialBalance,
		PriceRefreshSeconds: getEnvAsInt("PRICE_REFRESH_SECONDS", 30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if !c.MaxPositionSizeUSD.IsPositive() {
		return fmt.Errorf("MAX_POSITION_SIZE_USD must be positive")
	}
	if c.MaxOpenPositions < 1 {
		return fmt.Errorf("MAX_OPEN_POSITIONS must be at least 1")
	}
	if c.MaxLeverage < 1 {
		return fmt.Errorf("MAX_LEVERAGE must be at least 1")
	}
	if !c.InitialBalance.IsPositive() {
		return fmt.Errorf("INITIAL_BALANCE must be positive")
	}
	if c.PriceRefreshSeconds < 1 {
		return fmt.Errorf("PRICE_REFRESH_SECONDS must be at least 1")
	}

	// Live trading needs exchange credentials; paper mode only reads
	// public market data.
	if !c.EnablePaperTrading && (c.BybitAPIKey == "" || c.BybitAPISecret == "") {
		return fmt.Errorf("BYBIT_API_KEY and BYBIT_API_SECRET are required when paper trading is disabled")
	}

	return nil
}

// BybitBaseURL returns the REST endpoint matching the testnet flag
func (c *Config) BybitBaseURL() string {
	if c.BybitTestnet {
		return "https://api-testnet.bybit.com"
	}
	return "https://api.bybit.com"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key, defaultValue string) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return decimal.NewFromString(value)
}
