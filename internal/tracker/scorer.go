package tracker

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/GoldAnalyst/models"
)

// Scorer aggregates resolved predictions into calibration metrics. Pure
// read-only; safe to run while a sweep is committing.
type Scorer struct {
	store  models.PredictionStore
	logger zerolog.Logger
}

// NewScorer creates a new calibration scorer
func NewScorer(store models.PredictionStore) *Scorer {
	return &Scorer{
		store:  store,
		logger: log.With().Str("component", "scorer").Logger(),
	}
}

// Score computes accuracy and Brier score over every prediction resolved
// for the horizon. An empty evaluated set is a defined zero state, not an
// error. Brier terms use the stated confidence as probability (conf/100)
// against the realized binary outcome; lower is better calibrated.
func (s *Scorer) Score(ctx context.Context, horizon models.HorizonSpec) (models.Calibration, error) {
	records, err := s.store.EvaluatedForHorizon(ctx, horizon.Name)
	if err != nil {
		return models.Calibration{}, fmt.Errorf("loading evaluated predictions: %w", err)
	}

	if len(records) == 0 {
		return models.Calibration{}, nil
	}

	successCount := 0
	brierSum := 0.0

	for _, rec := range records {
		realized := 0.0
		if rec.Outcomes[horizon.Name] == models.OutcomeSuccess {
			successCount++
			realized = 1.0
		}

		prob := rec.ModelOutput.Confidence / 100.0
		brierSum += (prob - realized) * (prob - realized)
	}

	count := len(records)
	cal := models.Calibration{
		AccuracyPct: roundTo(float64(successCount)/float64(count)*100, 1),
		BrierScore:  roundTo(brierSum/float64(count), 3),
		Count:       count,
	}

	s.logger.Debug().
		Str("horizon", horizon.Name).
		Float64("accuracy_pct", cal.AccuracyPct).
		Float64("brier_score", cal.BrierScore).
		Int("count", cal.Count).
		Msg("Calibration computed")

	return cal, nil
}

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
