package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/GoldAnalyst/internal/api/yahoo"
	"github.com/Alias1177/GoldAnalyst/internal/config"
	"github.com/Alias1177/GoldAnalyst/internal/database"
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

	yahooClient := yahoo.NewClient(time.Duration(cfg.RequestTimeout) * time.Second)
	sweeper := tracker.NewSweeper(db, yahooClient, cfg.PrimarySymbol)
	scorer := tracker.NewScorer(db)

	ctx := context.Background()

	for _, horizon := range config.Horizons(cfg) {
		result, err := sweeper.Sweep(ctx, horizon)
		if err != nil {
			if errors.Is(err, tracker.ErrPriceUnavailable) {
				// No evaluation this cycle; cron will retry on its schedule.
				log.Warn().Str("horizon", horizon.Name).Err(err).Msg("Sweep skipped")
				continue
			}
			log.Fatal().Str("horizon", horizon.Name).Err(err).Msg("Sweep failed")
		}

		cal, err := scorer.Score(ctx, horizon)
		if err != nil {
			log.Fatal().Str("horizon", horizon.Name).Err(err).Msg("Scoring failed")
		}

		fmt.Printf("[%s] evaluated %d this run | accuracy %.1f%% | brier %.3f | n=%d\n",
			horizon.Name, result.Evaluated, cal.AccuracyPct, cal.BrierScore, cal.Count)
	}

	recent, err := db.ListRecent(ctx, 10)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list recent predictions")
	}

	if len(recent) > 0 {
		fmt.Println("\nRecent predictions:")
		for _, rec := range recent {
			status := "pending"
			if o, ok := rec.Outcomes["1d"]; ok {
				status = string(o)
			}
			fmt.Printf("  %s  %s  %-4s entry=%.2f conf=%.0f%% 1d=%s\n",
				rec.TimestampUTC.Format("2006-01-02 15:04"),
				rec.ID[:8],
				rec.ModelOutput.FinalAction,
				rec.EntryPricePrimary,
				rec.ModelOutput.Confidence,
				status)
		}
	}
}
