package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port         int
	DevMode      bool
	LogLevel     string
	DatabasePath string

	// Quote gateway
	QuoteServiceURL string
	QuoteChunkSize  int // max symbols per upstream call

	// Valuation batch
	ValuationBatchSize int // accounts selected per invocation
	ValuationWorkers   int // bounded parallelism within a batch
	ValuationSchedule  string
	WindowStart        string // HH:MM, maintenance window for valuation runs
	WindowEnd          string // HH:MM

	// Ranking / hall of fame
	RankingSchedule string
	TopGainersLimit int // K1: cumulative-gain leaders
	DailyMoversLimit int // K2: best/worst daily movers
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnvAsInt("PORT", 8080),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/stockleague.db"),

		QuoteServiceURL: getEnv("QUOTE_SERVICE_URL", "http://localhost:9100"),
		QuoteChunkSize:  getEnvAsInt("QUOTE_CHUNK_SIZE", 50),

		ValuationBatchSize: getEnvAsInt("VALUATION_BATCH_SIZE", 200),
		ValuationWorkers:   getEnvAsInt("VALUATION_WORKERS", 8),
		ValuationSchedule:  getEnv("VALUATION_SCHEDULE", "0 */5 * * * *"),
		WindowStart:        getEnv("VALUATION_WINDOW_START", "06:00"),
		WindowEnd:          getEnv("VALUATION_WINDOW_END", "23:00"),

		RankingSchedule:  getEnv("RANKING_SCHEDULE", "0 30 23 * * *"),
		TopGainersLimit:  getEnvAsInt("TOP_GAINERS_LIMIT", 10),
		DailyMoversLimit: getEnvAsInt("DAILY_MOVERS_LIMIT", 5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.QuoteServiceURL == "" {
		return fmt.Errorf("QUOTE_SERVICE_URL is required")
	}
	if c.ValuationBatchSize < 1 {
		return fmt.Errorf("VALUATION_BATCH_SIZE must be at least 1")
	}
	if c.ValuationWorkers < 1 {
		return fmt.Errorf("VALUATION_WORKERS must be at least 1")
	}
	if c.QuoteChunkSize < 1 {
		return fmt.Errorf("QUOTE_CHUNK_SIZE must be at least 1")
	}
	if c.TopGainersLimit < 1 || c.DailyMoversLimit < 1 {
		return fmt.Errorf("leaderboard limits must be at least 1")
	}
	return nil
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
