package models

import "context"

// PriceSource provides the latest quote for a symbol. A nil quote with a
// nil error means the source could not produce current data; callers treat
// that as "unavailable", not as a failure of the source itself.
type PriceSource interface {
	GetLatest(ctx context.Context, symbol string) (*PriceQuote, error)
}

// PredictionStore is the persistence contract for prediction records.
type PredictionStore interface {
	// InsertPrediction persists a new record with all horizons unresolved.
	InsertPrediction(ctx context.Context, rec *PredictionRecord) error
	// PendingForHorizon returns every record whose outcome for the horizon
	// is still unset, regardless of age.
	PendingForHorizon(ctx context.Context, horizon string) ([]PredictionRecord, error)
	// SetOutcomes writes outcomes for the horizon in one batch. Each write
	// applies only if that record's outcome is still unset; records already
	// resolved by a concurrent writer are skipped, not overwritten.
	SetOutcomes(ctx context.Context, horizon string, outcomes map[string]Outcome) (int, error)
	// EvaluatedForHorizon returns every record whose outcome for the
	// horizon has been resolved.
	EvaluatedForHorizon(ctx context.Context, horizon string) ([]PredictionRecord, error)
	// ListRecent returns the newest records, most recent first.
	ListRecent(ctx context.Context, limit int) ([]PredictionRecord, error)
}
