package population

import (
	"math/rand/v2"
)

// DefaultTradeFrequencies are the possible days between trades.
var DefaultTradeFrequencies = []int{7, 14, 21, 30, 60, 90, 120, 180, 365}

// Personality traits. Scalars are in [0, 1].
type Personality struct {
	TradeFrequency      int     `msgpack:"trade_frequency" json:"trade_frequency"`
	DecisionMakingSpeed float64 `msgpack:"decision_making_speed" json:"decision_making_speed"`
	RiskAppetite        float64 `msgpack:"risk_appetite" json:"risk_appetite"`
}

// Behavior traits: 0 is independent and rational, 1 follows the herd and emotion.
type Behavior struct {
	HerdMentality float64 `msgpack:"herd_mentality" json:"herd_mentality"`
	Rationality   float64 `msgpack:"rationality" json:"rationality"`
}

// Strategy traits: 0 is day trader, chart reader, concentrated.
type Strategy struct {
	ShortVsLongTerm        float64 `msgpack:"short_vs_long_term" json:"short_vs_long_term"`
	TechnicalVsFundamental float64 `msgpack:"technical_vs_fundamental" json:"technical_vs_fundamental"`
	Diversification        float64 `msgpack:"diversification" json:"diversification"`
}

// Environment traits. InformationAdvantage marks the rare insider.
type Environment struct {
	MarketSentiment      float64 `msgpack:"market_sentiment" json:"market_sentiment"`
	PopularityDependence float64 `msgpack:"popularity_dependence" json:"popularity_dependence"`
	InformationAdvantage bool    `msgpack:"information_advantage" json:"information_advantage"`
}

// Traits is the full trait vector of an agent.
type Traits struct {
	Personality    Personality        `msgpack:"personality" json:"personality"`
	Behavior       Behavior           `msgpack:"behavior" json:"behavior"`
	Strategy       Strategy           `msgpack:"strategy" json:"strategy"`
	Environment    Environment        `msgpack:"environment" json:"environment"`
	SecurityBiases map[string]float64 `msgpack:"security_biases" json:"security_biases"`
}

// NewTraits draws a trait vector. Each agent is an insider with probability insiderRatio.
func NewTraits(rng *rand.Rand, tickers []string, frequencies []int, insiderRatio float64) Traits {
	if len(frequencies) == 0 {
		frequencies = DefaultTradeFrequencies
	}

	t := Traits{SecurityBiases: make(map[string]float64, len(tickers))}
	for _, ticker := range tickers {
		t.SecurityBiases[ticker] = rng.Float64()
	}

	t.Personality.TradeFrequency = frequencies[rng.IntN(len(frequencies))]
	t.Personality.DecisionMakingSpeed = rng.Float64()
	t.Personality.RiskAppetite = rng.Float64()

	t.Behavior.HerdMentality = rng.Float64()
	t.Behavior.Rationality = rng.Float64()

	t.Strategy.ShortVsLongTerm = rng.Float64()
	t.Strategy.TechnicalVsFundamental = rng.Float64()
	t.Strategy.Diversification = rng.Float64()

	t.Environment.MarketSentiment = rng.Float64()
	t.Environment.PopularityDependence = rng.Float64()
	t.Environment.InformationAdvantage = rng.Float64() <= insiderRatio
	return t
}
