package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/GoldAnalyst/models"
)

// Load initializes configuration from environment variables
func Load() (*models.Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg models.Config

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.MetalsAPIKey = os.Getenv("METALS_API_KEY")
	cfg.MetalsAPIBaseURL = getEnvWithDefault("METALS_API_BASE_URL", "https://metals-api.com/api")
	cfg.PrimarySymbol = getEnvWithDefault("PRIMARY_SYMBOL", "GLD")
	cfg.SecondarySymbol = getEnvWithDefault("SECONDARY_SYMBOL", "XAU")
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.ConfidenceBuy = getEnvFloatWithDefault("CONFIDENCE_BUY", 60)
	cfg.ConfidenceSell = getEnvFloatWithDefault("CONFIDENCE_SELL", 60)
	cfg.Threshold1D = getEnvFloatWithDefault("SUCCESS_THRESHOLD_1D", 0.002)
	cfg.Threshold7D = getEnvFloatWithDefault("SUCCESS_THRESHOLD_7D", 0.01)
	cfg.Threshold30D = getEnvFloatWithDefault("SUCCESS_THRESHOLD_30D", 0.025)

	cfg.RiskTierSizes = map[string]string{
		"Conservative": getEnvWithDefault("POSITION_SIZE_CONSERVATIVE", "1.0%"),
		"Moderate":     getEnvWithDefault("POSITION_SIZE_MODERATE", "2.5%"),
		"Aggressive":   getEnvWithDefault("POSITION_SIZE_AGGRESSIVE", "5.0%"),
	}

	return &cfg, nil
}

// Horizons returns the evaluation horizons with their configured
// success thresholds, shortest first.
func Horizons(cfg *models.Config) []models.HorizonSpec {
	return []models.HorizonSpec{
		{Name: "1d", Duration: 24 * time.Hour, SuccessThreshold: cfg.Threshold1D},
		{Name: "7d", Duration: 7 * 24 * time.Hour, SuccessThreshold: cfg.Threshold7D},
		{Name: "30d", Duration: 30 * 24 * time.Hour, SuccessThreshold: cfg.Threshold30D},
	}
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
