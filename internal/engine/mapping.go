package engine

import (
	"github.com/Alias1177/GoldAnalyst/models"
)

// DeriveFinalAction gates the model's raw recommendation behind the
// configured confidence thresholds. A BUY or SELL that does not clear its
// threshold degrades to HOLD; everything else is HOLD already.
func DeriveFinalAction(recommendation models.Action, confidence float64, cfg *models.Config) models.Action {
	switch recommendation {
	case models.ActionBuy:
		if confidence >= cfg.ConfidenceBuy {
			return models.ActionBuy
		}
	case models.ActionSell:
		if confidence >= cfg.ConfidenceSell {
			return models.ActionSell
		}
	}
	return models.ActionHold
}

// PositionSize maps a suggested risk tier to its configured position size.
// Unknown tiers size to zero.
func PositionSize(tier string, cfg *models.Config) string {
	if size, ok := cfg.RiskTierSizes[tier]; ok {
		return size
	}
	return "0.0%"
}

// ApplyMapping fills the derived fields of a raw oracle output in place
func ApplyMapping(output *models.OracleOutput, cfg *models.Config) {
	output.FinalAction = DeriveFinalAction(output.Recommendation, output.Confidence, cfg)
	output.PositionSize = PositionSize(output.SuggestedRiskTier, cfg)
}
