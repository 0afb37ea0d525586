package population

import (
	"fmt"
	"math/rand/v2"

	"github.com/aristath/playground/internal/config"
)

// Population is the agent pool of one simulation run.
type Population struct {
	Agents  []*TraderAgent
	Classes *WealthClasses
	Income  *IncomeModel
}

// Generate creates cfg.PoolSize agents. totalMarketCap bounds the top wealth
// bracket. Every draw comes from src, so a seeded source gives a
// reproducible population.
func Generate(cfg config.MarketConfig, tickers []string, totalMarketCap float64, src rand.Source) (*Population, error) {
	income, err := NewIncomeModel(cfg.Gini, cfg.MeanIncome, src)
	if err != nil {
		return nil, err
	}
	classes, err := NewWealthClasses(cfg.WealthThresholds, cfg.WealthDistribution, totalMarketCap, cfg.PoolSize, src)
	if err != nil {
		return nil, err
	}

	interval := cfg.IncomeIntervalDays
	if interval <= 0 {
		interval = DefaultIncomeInterval
	}

	rng := rand.New(src)
	sigma := income.MonthlySigma()
	p := &Population{
		Agents:  make([]*TraderAgent, cfg.PoolSize),
		Classes: classes,
		Income:  income,
	}
	for i := range p.Agents {
		class, balance := classes.Draw()
		a := &TraderAgent{
			ID:             i,
			Balance:        balance,
			IncomeMean:     income.DrawMonthlyIncome(),
			IncomeSigma:    sigma,
			IncomeInterval: interval,
			WealthClass:    class,
			Traits:         NewTraits(rng, tickers, cfg.TradeFrequencies, cfg.InsiderRatio),
			Holdings:       make(map[string]int64),
		}
		a.Attach(src)
		p.Agents[i] = a
	}
	return p, nil
}

// TotalBalance sums the cash of every agent.
func (p *Population) TotalBalance() float64 {
	total := 0.0
	for _, a := range p.Agents {
		total += a.Balance
	}
	return total
}

// Agent returns the agent with id.
func (p *Population) Agent(id int) (*TraderAgent, error) {
	if id < 0 || id >= len(p.Agents) {
		return nil, fmt.Errorf("no agent %d", id)
	}
	return p.Agents[id], nil
}
