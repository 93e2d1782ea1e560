package quote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"trade-journal-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// PriceFetcher fetches the current market price for a ticker symbol.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, symbol string) (float64, error)
}

// Client is a client for a Yahoo-chart-shaped quote endpoint.
// It implements PriceFetcher.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ PriceFetcher = (*Client)(nil)

// chartResponse mirrors the provider's response envelope. Anything that
// deviates from this shape is treated as a fetch failure.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
	} `json:"chart"`
}

// NewClient creates a new quote provider client.
func NewClient(cfg *config.Quotes, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.FetchTimeoutSec) * time.Second)

	// Outbound limiter at the HTTP boundary; the quote service layers its
	// own request-window policy on top of this.
	limiter := rate.NewLimiter(rate.Limit(cfg.ClientRate), cfg.ClientBurst)

	return &Client{
		client:  client,
		logger:  logger,
		limiter: limiter,
	}
}

// FetchPrice fetches the current market price for the given symbol.
func (c *Client) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var result chartResponse
	req := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		SetQueryParams(map[string]string{
			"range":          "1d",
			"interval":       "1d",
			"includePrePost": "false",
		}).
		SetPathParam("symbol", symbol)

	c.logger.Debug("Fetching quote", zap.String("symbol", symbol))
	resp, err := req.Get("/{symbol}")
	if err != nil {
		return 0, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("quote request for %s failed with status %s", symbol, resp.Status())
	}

	if len(result.Chart.Result) == 0 || result.Chart.Result[0].Meta.RegularMarketPrice == nil {
		return 0, fmt.Errorf("invalid quote response format for %s", symbol)
	}

	return *result.Chart.Result[0].Meta.RegularMarketPrice, nil
}
