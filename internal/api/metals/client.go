package metals

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platformhttp "github.com/Alias1177/GoldAnalyst/internal/platform/http"
	"github.com/Alias1177/GoldAnalyst/models"
)

// fallbackSymbol is the gold futures ticker used as a spot proxy when
// Metals-API is keyless or down.
const fallbackSymbol = "GC=F"

// Client fetches spot metal prices from Metals-API, falling back to a
// Yahoo futures proxy quote when no key is configured or the call fails.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *platformhttp.Client
	fallback   models.PriceSource
	logger     zerolog.Logger
}

// NewClient creates a new Metals-API client. fallback provides the proxy
// quote and is required.
func NewClient(apiKey, baseURL string, requestTimeout time.Duration, fallback models.PriceSource) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: platformhttp.NewClient(platformhttp.ClientOptions{
			Timeout:        requestTimeout,
			RequestsPerSec: 1,
		}),
		fallback: fallback,
		logger:   log.With().Str("component", "metals_client").Logger(),
	}
}

type latestResponse struct {
	Success bool               `json:"success"`
	Rates   map[string]float64 `json:"rates"`
}

// GetLatest returns the latest spot price for symbol quoted in USD. A nil
// quote means neither Metals-API nor the fallback could produce data.
func (c *Client) GetLatest(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	if c.apiKey == "" {
		return c.getFallback(ctx, symbol)
	}

	reqURL := fmt.Sprintf("%s/latest?access_key=%s&base=%s&currencies=USD", c.baseURL, c.apiKey, symbol)

	var data latestResponse
	if err := c.httpClient.GetJSON(ctx, reqURL, &data); err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Metals-API fetch failed, trying fallback")
		return c.getFallback(ctx, symbol)
	}

	if !data.Success {
		c.logger.Warn().Str("symbol", symbol).Msg("Metals-API reported failure, trying fallback")
		return c.getFallback(ctx, symbol)
	}

	price, ok := data.Rates["USD"]
	if !ok || price == 0 {
		c.logger.Warn().Str("symbol", symbol).Msg("Metals-API response missing USD rate, trying fallback")
		return c.getFallback(ctx, symbol)
	}

	return &models.PriceQuote{
		Symbol:       symbol + "USD",
		Price:        price,
		TimestampUTC: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// getFallback fetches the futures proxy quote and relabels it. Like the
// primary path, an unobtainable quote comes back nil without an error.
func (c *Client) getFallback(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	quote, err := c.fallback.GetLatest(ctx, fallbackSymbol)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Fallback quote fetch failed")
		return nil, nil
	}
	if quote == nil {
		return nil, nil
	}

	quote.Symbol = symbol + "USD (Proxy)"
	return quote, nil
}
