package testing

import (
	"math"
	"time"

	"github.com/aristath/playground/internal/domain"
)

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NewHistory builds a daily history starting at start, one bar per calendar
// day, from the given adjusted closes. Close equals AdjClose.
func NewHistory(ticker string, start time.Time, closes ...float64) domain.SecurityHistory {
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Date:     start.AddDate(0, 0, i),
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			AdjClose: c,
			Volume:   1000,
		}
	}
	return domain.NewSecurityHistory(ticker, domain.CurrencyUSD, bars)
}

// NewTrendingHistory builds n daily bars growing geometrically from first by
// dailyPct percent per day, with a deterministic wobble so returns have spread.
func NewTrendingHistory(ticker string, start time.Time, n int, first, dailyPct float64) domain.SecurityHistory {
	closes := make([]float64, n)
	price := first
	for i := range closes {
		closes[i] = price
		wobble := 0.5 * math.Sin(float64(i))
		price *= 1 + (dailyPct+wobble)/100
	}
	return NewHistory(ticker, start, closes...)
}

// NewFundamentals returns fundamentals for an equity with the given grouping.
func NewFundamentals(ticker, sector, region string, shares float64) domain.Fundamentals {
	return domain.Fundamentals{
		Ticker:            ticker,
		Name:              ticker + " Inc.",
		Sector:            sector,
		Industry:          sector,
		Country:           "United States",
		Region:            region,
		Currency:          domain.CurrencyUSD,
		QuoteType:         domain.QuoteTypeEquity,
		SharesOutstanding: shares,
		Revenue:           1e9,
		Expenses:          8e8,
	}
}
