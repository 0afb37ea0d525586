package population

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultIncomeInterval is the number of days between income payments.
const DefaultIncomeInterval = 30

// TraderAgent is one simulated market participant. It owns its cash and
// holdings and shares no mutable state with other agents or the ledger.
type TraderAgent struct {
	ID                 int
	Balance            float64
	IncomeMean         float64
	IncomeSigma        float64
	IncomeInterval     int
	DaysSinceLastTrade int
	WealthClass        int
	Traits             Traits
	Holdings           map[string]int64

	src rand.Source
}

// Attach sets the random source used by CanTrade and CreditIncome.
func (a *TraderAgent) Attach(src rand.Source) {
	a.src = src
}

// CanTrade advances the days since the last trade by dt and reports whether
// that passes a noisy threshold around the trade frequency. A true result
// resets the counter.
func (a *TraderAgent) CanTrade(dt int) bool {
	freq := float64(a.Traits.Personality.TradeFrequency)
	noise := distuv.Normal{Mu: 0, Sigma: math.Sqrt(freq), Src: a.src}
	threshold := freq + noise.Rand()

	a.DaysSinceLastTrade += dt
	if float64(a.DaysSinceLastTrade) > threshold {
		a.DaysSinceLastTrade = 0
		return true
	}
	return false
}

// CreditIncome pays a noisy, never negative income on every interval day.
// It returns the amount credited.
func (a *TraderAgent) CreditIncome(day int) float64 {
	interval := a.IncomeInterval
	if interval <= 0 {
		interval = DefaultIncomeInterval
	}
	if day%interval != 0 {
		return 0
	}
	pay := a.IncomeMean
	if a.IncomeSigma > 0 {
		pay = distuv.Normal{Mu: a.IncomeMean, Sigma: a.IncomeSigma, Src: a.src}.Rand()
	}
	pay = math.Max(pay, 0)
	a.Balance += pay
	return pay
}

// Holding returns the quantity held of ticker.
func (a *TraderAgent) Holding(ticker string) int64 {
	return a.Holdings[ticker]
}
