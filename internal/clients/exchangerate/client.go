// Package exchangerate provides currency exchange rate fetching and caching functionality.
package exchangerate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/playground/internal/clientdata"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the exchangerate-api.com latest-rates endpoint.
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// Client for exchangerate-api.com
type Client struct {
	http  *resty.Client
	log   zerolog.Logger
	cache *clientdata.Cache
	ttl   time.Duration
}

// NewClient creates a new exchangerate-api.com client
// cache is optional - if nil, caching is disabled
func NewClient(baseURL string, cache *clientdata.Cache, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Client{
		http:  httpClient,
		log:   log.With().Str("client", "exchangerate-api").Logger(),
		cache: cache,
		ttl:   clientdata.ExchangeRates.TTL,
	}
}

// WithTTL overrides how long fetched rates stay fresh.
func (c *Client) WithTTL(ttl time.Duration) *Client {
	if ttl > 0 {
		c.ttl = ttl
	}
	return c
}

// cachedExchangeRate is the structure stored in the cache
type cachedExchangeRate struct {
	Rate float64 `json:"rate"`
}

type latestRates struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// GetRate fetches exchange rate with cache.
// If the API fails, returns stale cached data if available (stale data > no data).
func (c *Client) GetRate(fromCurrency, toCurrency string) (float64, error) {
	return c.GetRateContext(context.Background(), fromCurrency, toCurrency)
}

// GetRateContext is GetRate bound to ctx.
func (c *Client) GetRateContext(ctx context.Context, fromCurrency, toCurrency string) (float64, error) {
	if fromCurrency == toCurrency {
		return 1.0, nil
	}

	cacheKey := fromCurrency + ":" + toCurrency

	if c.cache != nil {
		var cached cachedExchangeRate
		if ok, err := c.cache.Fresh(clientdata.ExchangeRates, cacheKey, &cached); err == nil && ok {
			c.log.Debug().
				Str("from", fromCurrency).
				Str("to", toCurrency).
				Float64("rate", cached.Rate).
				Msg("Cache hit")
			return cached.Rate, nil
		}
	}

	rate, err := c.fetch(ctx, fromCurrency, toCurrency)
	if err != nil {
		if staleRate, ok := c.getStaleFromCache(cacheKey); ok {
			c.log.Warn().
				Err(err).
				Str("from", fromCurrency).
				Str("to", toCurrency).
				Float64("rate", staleRate).
				Msg("API failed, using stale cached rate")
			return staleRate, nil
		}
		return 0, err
	}

	if c.cache != nil {
		if err := c.cache.PutTTL(clientdata.ExchangeRates, cacheKey, cachedExchangeRate{Rate: rate}, c.ttl); err != nil {
			c.log.Warn().Err(err).Str("pair", cacheKey).Msg("Failed to cache exchange rate")
		}
	}

	c.log.Info().
		Str("from", fromCurrency).
		Str("to", toCurrency).
		Float64("rate", rate).
		Msg("Fetched rate")

	return rate, nil
}

func (c *Client) fetch(ctx context.Context, from, to string) (float64, error) {
	var result latestRates
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetPathParam("base", from).
		Get("/{base}")
	if err != nil {
		return 0, fmt.Errorf("API request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("API returned status %d", resp.StatusCode())
	}

	rate, exists := result.Rates[to]
	if !exists || rate <= 0 {
		return 0, fmt.Errorf("rate not found for %s->%s", from, to)
	}
	return rate, nil
}

// getStaleFromCache retrieves cached rate even if expired.
func (c *Client) getStaleFromCache(cacheKey string) (float64, bool) {
	if c.cache == nil {
		return 0, false
	}

	var cached cachedExchangeRate
	ok, err := c.cache.Stale(clientdata.ExchangeRates, cacheKey, &cached)
	if err != nil || !ok {
		return 0, false
	}
	return cached.Rate, true
}
