package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/GoldAnalyst/internal/outcome"
	"github.com/Alias1177/GoldAnalyst/models"
)

// ErrPriceUnavailable is returned when the price source cannot produce a
// current quote. The sweep aborts with no writes; the caller retries on its
// own schedule.
var ErrPriceUnavailable = errors.New("current price unavailable")

// Sweeper resolves outcomes for predictions old enough to judge. It holds
// no schedule of its own; each Sweep call is one discrete evaluation pass.
type Sweeper struct {
	store  models.PredictionStore
	prices models.PriceSource
	symbol string
	logger zerolog.Logger
	now    func() time.Time
}

// NewSweeper creates a sweeper judging predictions against the latest
// quote for symbol.
func NewSweeper(store models.PredictionStore, prices models.PriceSource, symbol string) *Sweeper {
	return &Sweeper{
		store:  store,
		prices: prices,
		symbol: symbol,
		logger: log.With().Str("component", "sweeper").Logger(),
		now:    time.Now,
	}
}

// Sweep evaluates every pending prediction that has aged past the horizon.
// The current price is fetched once and shared across the whole pass; all
// resulting outcomes commit as one batch. Re-running immediately is a no-op
// because resolved records no longer match the pending filter.
func (s *Sweeper) Sweep(ctx context.Context, horizon models.HorizonSpec) (models.SweepResult, error) {
	pending, err := s.store.PendingForHorizon(ctx, horizon.Name)
	if err != nil {
		return models.SweepResult{}, fmt.Errorf("loading pending predictions: %w", err)
	}

	// Nothing to judge, so skip the external price call entirely.
	if len(pending) == 0 {
		s.logger.Debug().Str("horizon", horizon.Name).Msg("No pending predictions")
		return models.SweepResult{}, nil
	}

	quote, err := s.prices.GetLatest(ctx, s.symbol)
	if err != nil {
		return models.SweepResult{}, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	if quote == nil {
		return models.SweepResult{}, fmt.Errorf("%w: no quote for %s", ErrPriceUnavailable, s.symbol)
	}

	now := s.now().UTC()
	outcomes := make(map[string]models.Outcome)

	for _, rec := range pending {
		if rec.Age(now) < horizon.Duration {
			continue // not yet due, a later sweep will pick it up
		}

		result, err := outcome.Classify(rec.EntryPricePrimary, quote.Price, rec.ModelOutput.FinalAction, horizon.SuccessThreshold)
		if err != nil {
			return models.SweepResult{}, fmt.Errorf("classifying %s: %w", rec.ID, err)
		}
		outcomes[rec.ID] = result
	}

	if len(outcomes) == 0 {
		s.logger.Debug().
			Str("horizon", horizon.Name).
			Int("pending", len(pending)).
			Msg("No predictions due yet")
		return models.SweepResult{}, nil
	}

	applied, err := s.store.SetOutcomes(ctx, horizon.Name, outcomes)
	if err != nil {
		return models.SweepResult{}, fmt.Errorf("committing outcomes: %w", err)
	}

	s.logger.Info().
		Str("horizon", horizon.Name).
		Float64("current_price", quote.Price).
		Int("evaluated", applied).
		Msg("Sweep complete")

	return models.SweepResult{Evaluated: applied}, nil
}
