// Package yahoo implements the security reference provider on Yahoo Finance.
package yahoo

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/rs/zerolog"

	"github.com/aristath/playground/internal/clientdata"
	"github.com/aristath/playground/internal/config"
	"github.com/aristath/playground/internal/domain"
)

// Client fetches histories, prices and fundamentals from Yahoo Finance and
// normalizes them to the base currency. Calls go through a single worker
// that keeps a fixed delay between requests.
type Client struct {
	api   backend
	queue *requestQueue
	conv  converter
	cache *clientdata.Cache
	log   zerolog.Logger
	now   func() time.Time
}

// NewClient creates a Yahoo client. rates converts foreign currencies to the
// base currency; cache is optional.
func NewClient(cfg config.ProviderConfig, rates domain.CurrencyExchangeServiceInterface, cache *clientdata.Cache, log zerolog.Logger) *Client {
	return newClient(financeBackend{}, cfg, rates, cache, log)
}

func newClient(api backend, cfg config.ProviderConfig, rates domain.CurrencyExchangeServiceInterface, cache *clientdata.Cache, log zerolog.Logger) *Client {
	base := cfg.BaseCurrency
	if base == "" {
		base = string(domain.CurrencyUSD)
	}
	return &Client{
		api:   api,
		queue: newRequestQueue(cfg.RequestDelay),
		conv:  converter{base: base, pool: cfg.CurrencyPool, rates: rates},
		cache: cache,
		log:   log.With().Str("client", "yahoo").Logger(),
		now:   time.Now,
	}
}

// Close stops the request worker.
func (c *Client) Close() {
	c.queue.Close()
}

// GetHistory returns the daily history of ticker from since until today.
func (c *Client) GetHistory(ctx context.Context, ticker string, since time.Time) (domain.SecurityHistory, error) {
	var (
		bars   []domain.Bar
		quoted string
	)
	err := c.queue.Do(ctx, func() error {
		var err error
		bars, quoted, err = c.api.Chart(ticker, since, c.now())
		return err
	})
	if err != nil {
		return domain.SecurityHistory{}, err
	}
	if len(bars) == 0 {
		return domain.SecurityHistory{}, fmt.Errorf("%s: no history since %s: %w", ticker, since.Format("2006-01-02"), domain.ErrDataUnavailable)
	}

	f, currency, err := c.conv.factor(quoted)
	if err != nil {
		return domain.SecurityHistory{}, err
	}

	c.log.Debug().
		Str("ticker", ticker).
		Int("bars", len(bars)).
		Str("currency", quoted).
		Float64("factor", f).
		Msg("Fetched history")

	return domain.NewSecurityHistory(ticker, currency, scaleBars(bars, f)), nil
}

type cachedPrice struct {
	Price float64 `json:"price"`
}

// GetCurrentPrice returns the regular market price in the base currency.
func (c *Client) GetCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	if c.cache != nil {
		var cached cachedPrice
		if ok, err := c.cache.Fresh(clientdata.CurrentPrices, ticker, &cached); err == nil && ok {
			return cached.Price, nil
		}
	}

	var q *finance.Quote
	err := c.queue.Do(ctx, func() error {
		var err error
		q, err = c.api.Quote(ticker)
		return err
	})
	if err != nil {
		if stale, ok := c.stalePrice(ticker); ok {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Quote failed, using stale cached price")
			return stale, nil
		}
		return 0, fmt.Errorf("failed to get quote for %s: %w", ticker, err)
	}
	if q == nil || q.RegularMarketPrice <= 0 {
		return 0, fmt.Errorf("%s: no quote: %w", ticker, domain.ErrDataUnavailable)
	}

	f, _, err := c.conv.factor(q.CurrencyID)
	if err != nil {
		return 0, err
	}
	price := q.RegularMarketPrice * f

	if c.cache != nil {
		if err := c.cache.Put(clientdata.CurrentPrices, ticker, cachedPrice{Price: price}); err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache price")
		}
	}
	return price, nil
}

func (c *Client) stalePrice(ticker string) (float64, bool) {
	if c.cache == nil {
		return 0, false
	}
	var cached cachedPrice
	ok, err := c.cache.Stale(clientdata.CurrentPrices, ticker, &cached)
	if err != nil || !ok {
		return 0, false
	}
	return cached.Price, true
}

// GetFundamentals returns name, currency, quote type and shares outstanding.
// Sector, industry, country and income statement figures are not part of the
// quote API and come from the universe file.
func (c *Client) GetFundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error) {
	if c.cache != nil {
		var cached domain.Fundamentals
		if ok, err := c.cache.Fresh(clientdata.Fundamentals, ticker, &cached); err == nil && ok {
			return cached, nil
		}
	}

	var eq *finance.Equity
	err := c.queue.Do(ctx, func() error {
		var err error
		eq, err = c.api.Equity(ticker)
		return err
	})
	if err != nil {
		return domain.Fundamentals{}, fmt.Errorf("failed to get equity for %s: %w", ticker, err)
	}
	if eq == nil {
		return domain.Fundamentals{}, fmt.Errorf("%s: no quote: %w", ticker, domain.ErrDataUnavailable)
	}

	qt := domain.QuoteType(eq.QuoteType)
	if qt == "" || qt == domain.QuoteTypeNone {
		return domain.Fundamentals{}, fmt.Errorf("%s: quote type %q: %w", ticker, qt, domain.ErrDataUnavailable)
	}

	cur, _ := c.conv.resolve(eq.CurrencyID)
	name := eq.LongName
	if name == "" {
		name = eq.ShortName
	}

	f := domain.Fundamentals{
		Ticker:            ticker,
		Name:              name,
		Currency:          domain.Currency(cur),
		QuoteType:         qt,
		SharesOutstanding: float64(eq.SharesOutstanding),
	}

	if c.cache != nil {
		if err := c.cache.Put(clientdata.Fundamentals, ticker, f); err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache fundamentals")
		}
	}
	return f, nil
}
