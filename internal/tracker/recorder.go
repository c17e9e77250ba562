package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/GoldAnalyst/internal/outcome"
	"github.com/Alias1177/GoldAnalyst/models"
)

// Recorder is the sole creation path for prediction records.
type Recorder struct {
	store  models.PredictionStore
	logger zerolog.Logger
}

// NewRecorder creates a new prediction recorder
func NewRecorder(store models.PredictionStore) *Recorder {
	return &Recorder{
		store:  store,
		logger: log.With().Str("component", "recorder").Logger(),
	}
}

// Record persists a new prediction with a fresh id and the current UTC
// instant. All horizon outcomes start unresolved. Returns the new id.
func (r *Recorder) Record(ctx context.Context, primaryPrice, secondaryPrice float64, inputSnapshot json.RawMessage, modelOutput models.OracleOutput) (string, error) {
	if primaryPrice == 0 {
		return "", fmt.Errorf("%w: primary entry price is zero", outcome.ErrInvalidInput)
	}

	rec := &models.PredictionRecord{
		ID:                  uuid.NewString(),
		TimestampUTC:        time.Now().UTC(),
		EntryPricePrimary:   primaryPrice,
		EntryPriceSecondary: secondaryPrice,
		InputSnapshot:       inputSnapshot,
		ModelOutput:         modelOutput,
	}

	if err := r.store.InsertPrediction(ctx, rec); err != nil {
		return "", fmt.Errorf("persisting prediction: %w", err)
	}

	r.logger.Info().
		Str("id", rec.ID).
		Str("action", string(modelOutput.FinalAction)).
		Float64("confidence", modelOutput.Confidence).
		Float64("entry_price", primaryPrice).
		Msg("Prediction recorded")

	return rec.ID, nil
}
