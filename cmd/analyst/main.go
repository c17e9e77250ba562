package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/GoldAnalyst/internal/api/metals"
	"github.com/Alias1177/GoldAnalyst/internal/api/yahoo"
	"github.com/Alias1177/GoldAnalyst/internal/config"
	"github.com/Alias1177/GoldAnalyst/internal/database"
	"github.com/Alias1177/GoldAnalyst/internal/engine"
	"github.com/Alias1177/GoldAnalyst/internal/notify"
	"github.com/Alias1177/GoldAnalyst/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	lvl, _ := zerolog.ParseLevel(cfg.LogLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	db, err := database.New(database.ConnectionParams{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   os.Getenv("DB_NAME"),
		SSLMode:  os.Getenv("DB_SSLMODE"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	yahooClient := yahoo.NewClient(timeout)
	metalsClient := metals.NewClient(cfg.MetalsAPIKey, cfg.MetalsAPIBaseURL, timeout, yahooClient)

	ctx := context.Background()

	primary, err := yahooClient.GetLatest(ctx, cfg.PrimarySymbol)
	if err != nil {
		log.Fatal().Err(err).Msg("Primary price fetch failed")
	}
	if primary == nil {
		log.Fatal().Str("symbol", cfg.PrimarySymbol).Msg("No primary quote available, cannot record a prediction")
	}

	secondary, err := metalsClient.GetLatest(ctx, cfg.SecondarySymbol)
	if err != nil || secondary == nil {
		log.Warn().Err(err).Str("symbol", cfg.SecondarySymbol).Msg("No secondary quote available, recording with zero")
	}

	analyst := engine.NewEngine(cfg)
	snapshot, output, err := analyst.Analyze(ctx, primary, secondary)
	if err != nil {
		// The engine already degraded to a conservative HOLD; record it so
		// the evaluation history keeps an honest trace of the failure.
		log.Warn().Err(err).Msg("Analysis degraded to fallback output")
	}

	secondaryPrice := 0.0
	if secondary != nil {
		secondaryPrice = secondary.Price
	}

	recorder := tracker.NewRecorder(db)
	id, err := recorder.Record(ctx, primary.Price, secondaryPrice, snapshot, output)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to record prediction")
	}

	fmt.Printf("Recommendation: %s (confidence %.0f%%, tier %s, size %s)\n",
		output.FinalAction, output.Confidence, output.SuggestedRiskTier, output.PositionSize)
	fmt.Printf("Rationale: %s\n", output.RationaleBrief)
	fmt.Printf("Recorded prediction %s at %s = %.2f\n", id, primary.Symbol, primary.Price)

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
		if err != nil {
			log.Warn().Msg("TELEGRAM_CHAT_ID not set or invalid, skipping notification")
			return
		}
		notifier, err := notify.NewTelegram(token, chatID)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram notifier unavailable")
			return
		}
		if err := notifier.SendRecommendation(primary, output); err != nil {
			log.Warn().Err(err).Msg("Notification failed")
		}
	}
}
