// Package domain provides core domain models and types.
package domain

import (
	"sort"
	"time"
)

// Currency represents a currency code
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyILS Currency = "ILS"
)

// QuoteType represents the type of financial product/instrument
type QuoteType string

const (
	QuoteTypeEquity     QuoteType = "EQUITY"
	QuoteTypeETF        QuoteType = "ETF"
	QuoteTypeMutualFund QuoteType = "MUTUALFUND"
	QuoteTypeIndex      QuoteType = "INDEX"
	QuoteTypeCurrency   QuoteType = "CURRENCY"
	// QuoteTypeNone is what the provider reports for delisted or unknown tickers
	QuoteTypeNone QuoteType = "NONE"
)

// Bar is one trading day of a security, already normalized to the base currency.
type Bar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   int64     `json:"volume"`
}

// SecurityHistory is the date-ordered daily history of one ticker.
// It is read-only once fetched.
type SecurityHistory struct {
	Ticker   string   `json:"ticker"`
	Currency Currency `json:"currency"`
	Bars     []Bar    `json:"bars"`
}

// NewSecurityHistory sorts bars by date and drops same-day duplicates (last wins).
func NewSecurityHistory(ticker string, currency Currency, bars []Bar) SecurityHistory {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := sorted[:0]
	for _, b := range sorted {
		b.Date = Day(b.Date)
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return SecurityHistory{Ticker: ticker, Currency: currency, Bars: out}
}

// Empty reports whether the history has no trading days.
func (h SecurityHistory) Empty() bool {
	return len(h.Bars) == 0
}

// Dates returns the trading days of the history.
func (h SecurityHistory) Dates() []time.Time {
	out := make([]time.Time, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.Date
	}
	return out
}

// Closes returns the close column.
func (h SecurityHistory) Closes() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.Close
	}
	return out
}

// IndexOn returns the position of the bar dated day, or -1.
func (h SecurityHistory) IndexOn(day time.Time) int {
	day = Day(day)
	i := sort.Search(len(h.Bars), func(i int) bool { return !h.Bars[i].Date.Before(day) })
	if i < len(h.Bars) && h.Bars[i].Date.Equal(day) {
		return i
	}
	return -1
}

// NearestIndex returns the position of the bar closest in time to day.
// Ties resolve to the earlier bar. Returns -1 for an empty history.
func (h SecurityHistory) NearestIndex(day time.Time) int {
	n := len(h.Bars)
	if n == 0 {
		return -1
	}
	day = Day(day)
	i := sort.Search(n, func(i int) bool { return !h.Bars[i].Date.Before(day) })
	switch {
	case i == 0:
		return 0
	case i == n:
		return n - 1
	}
	if day.Sub(h.Bars[i-1].Date) <= h.Bars[i].Date.Sub(day) {
		return i - 1
	}
	return i
}

// Since returns the bars dated on or after day.
func (h SecurityHistory) Since(day time.Time) SecurityHistory {
	day = Day(day)
	i := sort.Search(len(h.Bars), func(i int) bool { return !h.Bars[i].Date.Before(day) })
	return SecurityHistory{Ticker: h.Ticker, Currency: h.Currency, Bars: h.Bars[i:]}
}

// Fundamentals are the static facts about a ticker.
type Fundamentals struct {
	Ticker            string    `json:"ticker"`
	Name              string    `json:"name"`
	Sector            string    `json:"sector"`
	Industry          string    `json:"industry"`
	Country           string    `json:"country"`
	Region            string    `json:"region"`
	Currency          Currency  `json:"currency"`
	QuoteType         QuoteType `json:"quote_type"`
	SharesOutstanding float64   `json:"shares_outstanding"`
	Revenue           float64   `json:"revenue"`
	Expenses          float64   `json:"expenses"`
}

// CompanySnapshot is the per-ticker derived record at simulation start.
type CompanySnapshot struct {
	Ticker               string    `json:"ticker"`
	Name                 string    `json:"name"`
	Country              string    `json:"country"`
	Region               string    `json:"region"`
	Industry             string    `json:"industry"`
	Sector               string    `json:"sector"`
	Price                float64   `json:"price"`
	TradingVolume        float64   `json:"trading_volume"`
	SharesOutstanding    float64   `json:"shares_outstanding"`
	MarketCap            float64   `json:"market_cap"`
	Revenue              float64   `json:"revenue"`
	Earnings             float64   `json:"earnings"`
	Profits              float64   `json:"profits"`
	Expenses             float64   `json:"expenses"`
	EPS                  float64   `json:"eps"`
	PERatio              float64   `json:"pe_ratio"`
	VolatilityWindowSize int       `json:"volatility_window_size"`
	VolatilityIndex      float64   `json:"volatility_index"`
	StartDate            time.Time `json:"start_date"`
	DaysSinceStartDate   int       `json:"days_since_start_date"`
	Popularity           float64   `json:"popularity"`
	Active               bool      `json:"active"`
}

// UpdatePrice is the hook for demand/supply driven price moves. Prices are
// currently fixed at their start-date value.
func (c *CompanySnapshot) UpdatePrice(demand, supply float64) {}

// UpdateMetrics is the hook for recomputing derived metrics after a price move.
func (c *CompanySnapshot) UpdateMetrics() {}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's calendar month.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
