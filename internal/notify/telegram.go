package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/GoldAnalyst/models"
)

// Telegram pushes recorded recommendations to a configured chat
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram creates a Telegram notifier. Returns an error when the bot
// token is rejected.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}

	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

// SendRecommendation delivers a freshly recorded recommendation. Delivery
// failure is logged and returned but never blocks the recording path.
func (t *Telegram) SendRecommendation(quote *models.PriceQuote, output models.OracleOutput) error {
	text := fmt.Sprintf(
		"Gold Analyst: %s\n\n%s at %.2f\nConfidence: %.0f%%\nRisk tier: %s (size %s)\n\n%s",
		output.FinalAction,
		quote.Symbol, quote.Price,
		output.Confidence,
		output.SuggestedRiskTier, output.PositionSize,
		output.RationaleBrief,
	)

	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error().Err(err).Msg("Failed to send recommendation")
		return fmt.Errorf("sending telegram message: %w", err)
	}

	t.logger.Debug().Int64("chat_id", t.chatID).Msg("Recommendation sent")
	return nil
}
