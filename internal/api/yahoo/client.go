package yahoo

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platformhttp "github.com/Alias1177/GoldAnalyst/internal/platform/http"
	"github.com/Alias1177/GoldAnalyst/models"
)

const baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Client fetches quotes from the Yahoo Finance chart endpoint
type Client struct {
	httpClient *platformhttp.Client
	logger     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(requestTimeout time.Duration) *Client {
	return &Client{
		httpClient: platformhttp.NewClient(platformhttp.ClientOptions{
			Timeout:        requestTimeout,
			RequestsPerSec: 2,
		}),
		logger: log.With().Str("component", "yahoo_client").Logger(),
	}
}

// chartResponse mirrors the slice of the chart payload we actually read.
// Bar values arrive as nullable arrays, so they decode through pointers.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Open  []*float64 `json:"open"`
					High  []*float64 `json:"high"`
					Low   []*float64 `json:"low"`
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetLatest returns the most recent quote for symbol, with the 24h change
// derived from the previous session close. A nil quote means Yahoo could
// not produce usable data right now; that is not treated as an error.
func (c *Client) GetLatest(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	reqURL := fmt.Sprintf("%s/%s?range=2d&interval=1d", baseURL, url.PathEscape(symbol))

	var data chartResponse
	if err := c.httpClient.GetJSON(ctx, reqURL, &data); err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Yahoo chart fetch failed")
		return nil, nil
	}

	if data.Chart.Error != nil {
		c.logger.Warn().
			Str("symbol", symbol).
			Str("code", data.Chart.Error.Code).
			Str("description", data.Chart.Error.Description).
			Msg("Yahoo chart API error")
		return nil, nil
	}

	if len(data.Chart.Result) == 0 || len(data.Chart.Result[0].Indicators.Quote) == 0 {
		c.logger.Warn().Str("symbol", symbol).Msg("Empty chart response")
		return nil, nil
	}

	result := data.Chart.Result[0]
	bars := result.Indicators.Quote[0]

	closes := compact(bars.Close)
	if len(closes) == 0 {
		c.logger.Warn().Str("symbol", symbol).Msg("No close prices in chart response")
		return nil, nil
	}

	price := closes[len(closes)-1]
	prevClose := price
	if len(closes) > 1 {
		prevClose = closes[len(closes)-2]
	}

	pctChange := 0.0
	if prevClose != 0 {
		pctChange = (price - prevClose) / prevClose * 100
	}

	quote := &models.PriceQuote{
		Symbol:       symbol,
		Price:        price,
		TimestampUTC: time.Now().UTC().Format(time.RFC3339),
		PctChange24h: roundTo2(pctChange),
		OHLC: &models.OHLC{
			Open:  lastValue(bars.Open, price),
			High:  lastValue(bars.High, price),
			Low:   lastValue(bars.Low, price),
			Close: price,
		},
	}

	c.logger.Debug().
		Str("symbol", symbol).
		Float64("price", price).
		Float64("pct_change_24h", quote.PctChange24h).
		Msg("Fetched quote")

	return quote, nil
}

// compact drops the null entries Yahoo pads incomplete sessions with
func compact(values []*float64) []float64 {
	var out []float64
	for _, v := range values {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func lastValue(values []*float64, fallback float64) float64 {
	c := compact(values)
	if len(c) == 0 {
		return fallback
	}
	return c[len(c)-1]
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
