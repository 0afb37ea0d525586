package universe

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/playground/internal/domain"
	"github.com/aristath/playground/pkg/formulas"
)

// VolatilityWindowSize is the number of closes behind the volatility index.
const VolatilityWindowSize = 20

// Derive computes the start-date record of one company from its fundamentals
// and full daily history. Popularity is filled in later by AssignPopularity
// because it is relative to the other active companies.
func Derive(f domain.Fundamentals, h domain.SecurityHistory, startDate time.Time) (domain.CompanySnapshot, error) {
	if h.Empty() {
		return domain.CompanySnapshot{}, fmt.Errorf("%s: empty history: %w", f.Ticker, domain.ErrDataUnavailable)
	}
	if f.SharesOutstanding <= 0 {
		return domain.CompanySnapshot{}, fmt.Errorf("%s: shares outstanding unknown: %w", f.Ticker, domain.ErrDataUnavailable)
	}

	startDate = domain.Day(startDate)
	firstDay := h.Bars[0].Date

	idxStart := 0
	if firstDay.Before(startDate) {
		idxStart = h.NearestIndex(startDate)
	}

	closes := h.Closes()
	price := closes[idxStart]
	lastClose := closes[len(closes)-1]

	priceChangeFactor := 1.0
	if lastClose > 0 {
		priceChangeFactor = price / lastClose
	}

	c := domain.CompanySnapshot{
		Ticker:               f.Ticker,
		Name:                 f.Name,
		Country:              f.Country,
		Region:               f.Region,
		Industry:             f.Industry,
		Sector:               f.Sector,
		Price:                price,
		TradingVolume:        float64(h.Bars[idxStart].Volume),
		SharesOutstanding:    f.SharesOutstanding,
		MarketCap:            f.SharesOutstanding * price,
		Revenue:              f.Revenue * priceChangeFactor,
		Expenses:             f.Expenses * priceChangeFactor,
		Earnings:             price * f.SharesOutstanding * priceChangeFactor,
		VolatilityWindowSize: VolatilityWindowSize,
		StartDate:            startDate,
	}
	if c.Region == "" {
		c.Region = RegionForCountry(c.Country)
	}
	c.Profits = c.Revenue - c.Expenses
	c.EPS = c.Earnings / c.SharesOutstanding
	if c.EPS != 0 {
		c.PERatio = c.Price / c.EPS
	}
	c.VolatilityIndex = volatilityIndex(closes, idxStart, VolatilityWindowSize)

	days := int(firstDay.Sub(startDate).Hours() / 24)
	if days < 0 {
		days = 0
	}
	c.DaysSinceStartDate = days
	c.Active = days == 0

	return c, nil
}

// volatilityIndex is std(close window) x sqrt(window) over the trailing window
// ending at idx, or over the first window closes when there is not enough past.
func volatilityIndex(closes []float64, idx, window int) float64 {
	var sample []float64
	if idx > window-1 {
		sample = closes[idx-window+1 : idx+1]
	} else {
		sample = closes[:min(window, len(closes))]
	}
	if len(sample) == 0 {
		return 0
	}
	return formulas.PopStdDev(sample) * math.Sqrt(float64(window))
}

// AssignPopularity sets each active company's share of the summed
// volume/shares turnover. Inactive companies get zero.
func AssignPopularity(companies []domain.CompanySnapshot) {
	sum := 0.0
	for _, c := range companies {
		if c.Active && c.SharesOutstanding > 0 {
			sum += c.TradingVolume / c.SharesOutstanding
		}
	}
	for i := range companies {
		c := &companies[i]
		c.Popularity = 0
		if c.Active && sum > 0 && c.SharesOutstanding > 0 {
			c.Popularity = (c.TradingVolume / c.SharesOutstanding) / sum
		}
	}
}

// FundamentalInfluence is earnings over the P/E ratio.
func FundamentalInfluence(c domain.CompanySnapshot) float64 {
	if c.PERatio == 0 {
		return 0
	}
	return c.Earnings / c.PERatio
}
