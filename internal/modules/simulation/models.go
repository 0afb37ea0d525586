// Package simulation steps the synthetic market day by day: agents are paid,
// trends are sampled and the decision strategy's intents are settled against
// company prices.
package simulation

import (
	"time"

	"github.com/aristath/playground/internal/domain"
	"github.com/aristath/playground/internal/modules/indices"
	"github.com/aristath/playground/internal/modules/population"
	"github.com/aristath/playground/internal/modules/trend"
)

// TechnicalLookback is the number of simulated days the technical influence
// compares the current price against.
const TechnicalLookback = 30

// CompanyRecord is one company's state on one simulated day.
type CompanyRecord struct {
	Day             int     `json:"day"`
	Price           float64 `json:"price"`
	MarketCap       float64 `json:"market_cap"`
	VolatilityIndex float64 `json:"volatility_index"`
}

// Day is the outcome of one simulated day.
type Day struct {
	Day    int          `json:"day"`
	Date   time.Time    `json:"date"`
	Trends trend.Trends `json:"trends"`
	Income float64      `json:"income"`
	Trades int          `json:"trades"`
}

// Result is a finished run.
type Result struct {
	RunID     string                     `json:"run_id"`
	Seed      uint64                     `json:"seed"`
	StartDate time.Time                  `json:"start_date"`
	Strategy  string                     `json:"strategy"`
	Companies []domain.CompanySnapshot   `json:"companies"`
	Days      []Day                      `json:"days"`
	History   map[string][]CompanyRecord `json:"history"`
	Agents    []*population.TraderAgent  `json:"-"`
	Market    *indices.Market            `json:"-"`
	// Trades counts settled intents, the opening session included
	Trades int `json:"trades"`
}

// Price returns a company's price on day, or false when it was not recorded.
func (r *Result) Price(ticker string, day int) (float64, bool) {
	for _, rec := range r.History[ticker] {
		if rec.Day == day {
			return rec.Price, true
		}
	}
	return 0, false
}
