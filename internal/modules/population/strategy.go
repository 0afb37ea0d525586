package population

import (
	"github.com/aristath/playground/internal/domain"
	"github.com/aristath/playground/internal/modules/trend"
)

// Side of an intent.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Intent is an agent's wish to trade a quantity of a ticker.
type Intent struct {
	Ticker   string
	Side     Side
	Quantity int64
}

// MarketView is what a strategy sees on one simulated day.
type MarketView struct {
	Day       int
	Trends    trend.Trends
	Companies []domain.CompanySnapshot
	// Influences are per-ticker technical and fundamental signals.
	Technical   map[string]float64
	Fundamental map[string]float64
}

// DecisionStrategy turns market state and an agent's traits into intents.
// Initial is true for the market-opening session, where every agent takes part.
type DecisionStrategy interface {
	Name() string
	Decide(agent *TraderAgent, view MarketView, initial bool) []Intent
}

// NoTrade never trades. Agent decision rules are not defined yet, so this
// keeps the population passive while income and trends still evolve.
type NoTrade struct{}

// Name implements DecisionStrategy
func (NoTrade) Name() string { return "no_trade" }

// Decide implements DecisionStrategy
func (NoTrade) Decide(*TraderAgent, MarketView, bool) []Intent { return nil }
