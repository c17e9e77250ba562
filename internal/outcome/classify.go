package outcome

import (
	"errors"
	"fmt"
	"math"

	"github.com/Alias1177/GoldAnalyst/models"
)

// ErrInvalidInput marks a contract violation by the caller, such as a zero
// entry price. It is never recovered automatically.
var ErrInvalidInput = errors.New("invalid classifier input")

// Classify judges whether the price move implied by an action actually
// happened. threshold is a non-negative fraction (0.002 = 0.2%):
//
//	BUY succeeds when price rose by at least the threshold,
//	SELL succeeds when price fell by at least the threshold,
//	HOLD succeeds when the move stayed strictly inside the threshold.
//
// Pure and deterministic; safe to call repeatedly with identical inputs.
func Classify(entryPrice, currentPrice float64, action models.Action, threshold float64) (models.Outcome, error) {
	if entryPrice == 0 {
		return "", fmt.Errorf("%w: entry price is zero", ErrInvalidInput)
	}
	if threshold < 0 {
		return "", fmt.Errorf("%w: negative threshold %v", ErrInvalidInput, threshold)
	}

	delta := (currentPrice - entryPrice) / entryPrice

	switch action {
	case models.ActionBuy:
		if delta >= threshold {
			return models.OutcomeSuccess, nil
		}
		return models.OutcomeFailure, nil
	case models.ActionSell:
		if delta <= -threshold {
			return models.OutcomeSuccess, nil
		}
		return models.OutcomeFailure, nil
	case models.ActionHold:
		if math.Abs(delta) < threshold {
			return models.OutcomeSuccess, nil
		}
		return models.OutcomeFailure, nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}
}
