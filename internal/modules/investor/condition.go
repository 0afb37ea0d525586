// Package investor holds the decision helpers of the single real investor
// that owns the ledger: market conditions per security, the portfolio
// status and the monthly deposit.
package investor

import (
	"github.com/aristath/playground/pkg/formulas"
)

// Trend classifies a security's market.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// RSI bands.
const (
	oversold   = 30.0
	overbought = 70.0
)

// Windows configures the indicators behind a condition.
type Windows struct {
	RSI   int
	Short int
	Long  int
}

// Condition is the evaluated market condition of one security.
type Condition struct {
	Symbol    string   `json:"symbol"`
	Valid     bool     `json:"valid"`
	RSI       *float64 `json:"rsi,omitempty"`
	ShortTerm *float64 `json:"short_term,omitempty"`
	LongTerm  *float64 `json:"long_term,omitempty"`
	Trend     Trend    `json:"trend"`
}

// MarketCondition classifies closes. Oversold with a short-term trend above
// the long-term one is bullish; overbought with the short-term trend below
// the long-term one is bearish; anything else, including too little
// history, is neutral.
func MarketCondition(symbol string, closes []float64, w Windows) Condition {
	c := Condition{
		Symbol:    symbol,
		Valid:     true,
		RSI:       formulas.CalculateRSI(closes, w.RSI),
		ShortTerm: formulas.PercentChangeOver(closes, w.Short),
		LongTerm:  formulas.PercentChangeOver(closes, w.Long),
		Trend:     TrendNeutral,
	}
	if c.RSI == nil || c.ShortTerm == nil || c.LongTerm == nil {
		return c
	}

	switch {
	case *c.RSI < oversold && *c.ShortTerm > *c.LongTerm:
		c.Trend = TrendBullish
	case *c.RSI > overbought && *c.ShortTerm < *c.LongTerm:
		c.Trend = TrendBearish
	}
	return c
}

// GoodToSell reports whether the condition is an overbought downtrend.
func (c Condition) GoodToSell() bool {
	return c.Valid && c.Trend == TrendBearish
}
