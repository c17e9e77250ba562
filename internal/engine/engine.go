package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/Alias1177/GoldAnalyst/models"
)

const systemPrompt = `You are an expert Gold Analyst AI.
Your task is to provide ultra-minimal Buy/Hold/Sell recommendations for Gold.

Tone: Ultra-minimal, direct, professional.
Output: STRICT JSON only. No markdown, no preamble.

Required Output Schema:
{
  "recommendation": "BUY|HOLD|SELL",
  "confidence": <float 0-100>,
  "rationale_brief": "One-line ultra-minimal explanation (max 20 words)",
  "rationale_technical": "One short paragraph technical rationale (max 80 words)",
  "suggested_risk_tier": "Conservative|Moderate|Aggressive"
}

Rules:
1. If confidence < 50%, include a calibration sentence in rationale.
2. Never promise returns.
3. Be deterministic based on the provided data.`

// Engine produces a structured recommendation from current market data
type Engine struct {
	client *openai.Client
	cfg    *models.Config
	logger zerolog.Logger
}

// NewEngine creates a new analyst engine
func NewEngine(cfg *models.Config) *Engine {
	return &Engine{
		client: openai.NewClient(cfg.OpenAIAPIKey),
		cfg:    cfg,
		logger: log.With().Str("component", "engine").Logger(),
	}
}

// inputSnapshot captures everything handed to the model, kept verbatim on
// the prediction record for audit.
type inputSnapshot struct {
	TimestampUTC string                        `json:"timestamp_utc"`
	Assets       map[string]*models.PriceQuote `json:"assets"`
	Config       snapshotConfig                `json:"config"`
}

type snapshotConfig struct {
	RiskTiers         []string           `json:"risk_tiers"`
	MappingThresholds map[string]float64 `json:"mapping_thresholds"`
}

// Analyze sends both asset quotes to the model and returns the serialized
// input snapshot together with the parsed, mapped recommendation. On model
// failure the returned output is a conservative HOLD and the error reports
// what went wrong; the pair is still usable for degraded operation.
func (e *Engine) Analyze(ctx context.Context, primary, secondary *models.PriceQuote) (json.RawMessage, models.OracleOutput, error) {
	tiers := make([]string, 0, len(e.cfg.RiskTierSizes))
	for tier := range e.cfg.RiskTierSizes {
		tiers = append(tiers, tier)
	}

	snap := inputSnapshot{
		TimestampUTC: time.Now().UTC().Format(time.RFC3339),
		Assets: map[string]*models.PriceQuote{
			e.cfg.PrimarySymbol:   primary,
			e.cfg.SecondarySymbol: secondary,
		},
		Config: snapshotConfig{
			RiskTiers: tiers,
			MappingThresholds: map[string]float64{
				"confidence_buy":  e.cfg.ConfidenceBuy,
				"confidence_sell": e.cfg.ConfidenceSell,
			},
		},
	}

	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return nil, fallbackOutput("snapshot marshaling failed"), fmt.Errorf("marshaling input snapshot: %w", err)
	}

	if e.cfg.OpenAIAPIKey == "" {
		return snapJSON, fallbackOutput("missing OPENAI_API_KEY"), fmt.Errorf("missing OpenAI API key")
	}

	resp, err := e.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       openai.GPT4oMini,
			Temperature: 0,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: "Analyze this market data:\n" + string(snapJSON),
				},
			},
		},
	)
	if err != nil {
		e.logger.Error().Err(err).Msg("OpenAI API error")
		return snapJSON, fallbackOutput("model call failed"), fmt.Errorf("calling model: %w", err)
	}

	if len(resp.Choices) == 0 {
		e.logger.Warn().Msg("OpenAI returned empty choices")
		return snapJSON, fallbackOutput("model returned no choices"), fmt.Errorf("model returned no choices")
	}

	var output models.OracleOutput
	content := stripFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &output); err != nil {
		e.logger.Error().Err(err).Str("content", content).Msg("Model output is not valid JSON")
		return snapJSON, fallbackOutput("unparseable model output"), fmt.Errorf("parsing model output: %w", err)
	}

	ApplyMapping(&output, e.cfg)

	e.logger.Info().
		Str("recommendation", string(output.Recommendation)).
		Str("final_action", string(output.FinalAction)).
		Float64("confidence", output.Confidence).
		Msg("Analysis complete")

	return snapJSON, output, nil
}

// stripFences removes the markdown code fences some models wrap JSON in
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// fallbackOutput is the conservative stand-in used when the model cannot
// be consulted. Zero confidence keeps it out of any meaningful score.
func fallbackOutput(reason string) models.OracleOutput {
	return models.OracleOutput{
		Recommendation:     models.ActionHold,
		Confidence:         0,
		RationaleBrief:     "Error: " + reason,
		RationaleTechnical: "System error or missing API key.",
		SuggestedRiskTier:  "Conservative",
		FinalAction:        models.ActionHold,
		PositionSize:       "0.0%",
	}
}
