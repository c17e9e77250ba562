package models

import (
	"encoding/json"
	"time"
)

// Config holds all application configuration
type Config struct {
	OpenAIAPIKey     string  `env:"OPENAI_API_KEY" envDefault:"-"`
	MetalsAPIKey     string  `env:"METALS_API_KEY" envDefault:"-"`
	MetalsAPIBaseURL string  `env:"METALS_API_BASE_URL" envDefault:"https://metals-api.com/api"`
	PrimarySymbol    string  `env:"PRIMARY_SYMBOL" envDefault:"GLD"`
	SecondarySymbol  string  `env:"SECONDARY_SYMBOL" envDefault:"XAU"`
	LogLevel         string  `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout   int     `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	ConfidenceBuy    float64 `env:"CONFIDENCE_BUY" envDefault:"60"`
	ConfidenceSell   float64 `env:"CONFIDENCE_SELL" envDefault:"60"`

	// Success thresholds per horizon, as fractions (0.002 = 0.2%)
	Threshold1D  float64 `env:"SUCCESS_THRESHOLD_1D" envDefault:"0.002"`
	Threshold7D  float64 `env:"SUCCESS_THRESHOLD_7D" envDefault:"0.01"`
	Threshold30D float64 `env:"SUCCESS_THRESHOLD_30D" envDefault:"0.025"`

	// Position size per risk tier, e.g. "Conservative" -> "1.0%"
	RiskTierSizes map[string]string
}

// Action is the tradeable decision derived from a recommendation.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionHold Action = "HOLD"
	ActionSell Action = "SELL"
)

// Outcome is the realized result of a prediction for one horizon.
// A horizon with no outcome yet is simply absent from the record's map.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// HorizonSpec describes one evaluation window: how long a prediction must
// age before it is judged, and the price-move fraction that counts as a hit.
type HorizonSpec struct {
	Name             string        `json:"name"`
	Duration         time.Duration `json:"duration"`
	SuccessThreshold float64       `json:"success_threshold"`
}

// PriceQuote represents the latest price data for a single symbol
type PriceQuote struct {
	Symbol       string  `json:"symbol"`
	Price        float64 `json:"price"`
	TimestampUTC string  `json:"timestamp_utc"`
	PctChange24h float64 `json:"pct_change_24h"`
	OHLC         *OHLC   `json:"ohlc,omitempty"`
}

// OHLC holds open/high/low/close values for a quote's trading session
type OHLC struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// OracleOutput is the structured recommendation returned by the analyst
// model. The evaluation core reads only FinalAction and Confidence; the
// remaining fields are stored and returned unmodified.
type OracleOutput struct {
	Recommendation     Action  `json:"recommendation"`
	Confidence         float64 `json:"confidence"` // 0-100
	RationaleBrief     string  `json:"rationale_brief"`
	RationaleTechnical string  `json:"rationale_technical"`
	SuggestedRiskTier  string  `json:"suggested_risk_tier"`
	FinalAction        Action  `json:"final_action"`
	PositionSize       string  `json:"position_size"`
}

// PredictionRecord is one logged recommendation together with the prices
// observed when it was issued and its per-horizon outcomes. Everything but
// Outcomes is immutable after creation; each horizon's outcome is written
// at most once.
type PredictionRecord struct {
	ID                  string             `json:"id"`
	TimestampUTC        time.Time          `json:"timestamp_utc"`
	EntryPricePrimary   float64            `json:"entry_price_primary"`
	EntryPriceSecondary float64            `json:"entry_price_secondary"`
	InputSnapshot       json.RawMessage    `json:"input_snapshot"`
	ModelOutput         OracleOutput       `json:"model_output"`
	Outcomes            map[string]Outcome `json:"horizon_outcomes,omitempty"`
}

// Age returns how long ago the record was created.
func (r *PredictionRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.TimestampUTC)
}

// Calibration summarizes how well stated confidence matched realized
// outcomes over all evaluated predictions for one horizon.
type Calibration struct {
	AccuracyPct float64 `json:"accuracy_pct"`
	BrierScore  float64 `json:"brier_score"`
	Count       int     `json:"count"`
}

// SweepResult reports how many predictions one evaluation pass resolved.
type SweepResult struct {
	Evaluated int `json:"evaluated"`
}
