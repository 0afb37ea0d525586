package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/playground/internal/config"
	"github.com/aristath/playground/internal/domain"
	"github.com/aristath/playground/internal/events"
	"github.com/aristath/playground/internal/modules/indices"
	"github.com/aristath/playground/internal/modules/population"
	"github.com/aristath/playground/internal/modules/trend"
	"github.com/aristath/playground/internal/modules/universe"
	"github.com/aristath/playground/internal/utils"
)

// UniverseBuilder resolves universe entries into companies and histories.
type UniverseBuilder interface {
	Build(ctx context.Context, entries []universe.Entry, startDate time.Time) (*universe.Universe, error)
}

// MarketBuilder builds the indices of a universe.
type MarketBuilder interface {
	Build(ctx context.Context, u *universe.Universe) (*indices.Market, error)
}

// Driver runs simulations.
type Driver struct {
	universe  UniverseBuilder
	markets   MarketBuilder
	runs      *population.Repository
	strategy  population.DecisionStrategy
	publisher events.Publisher
	cfg       config.MarketConfig
	log       zerolog.Logger
}

// New creates a driver. runs and publisher are optional; a nil strategy
// means population.NoTrade.
func New(
	builder UniverseBuilder,
	markets MarketBuilder,
	runs *population.Repository,
	strategy population.DecisionStrategy,
	publisher events.Publisher,
	cfg config.MarketConfig,
	log zerolog.Logger,
) *Driver {
	if strategy == nil {
		strategy = population.NoTrade{}
	}
	return &Driver{
		universe:  builder,
		markets:   markets,
		runs:      runs,
		strategy:  strategy,
		publisher: publisher,
		cfg:       cfg,
		log:       log.With().Str("service", "simulation").Logger(),
	}
}

// run is the mutable state of one simulation.
type run struct {
	result    *Result
	companies map[string]*domain.CompanySnapshot
	agents    []*population.TraderAgent
}

// Run builds the market for entries and steps it. The same seed and inputs
// always produce the same result.
func (d *Driver) Run(ctx context.Context, entries []universe.Entry) (*Result, error) {
	elapsed := utils.Track("simulation_run", 5*time.Minute, d.log)
	src := rand.NewPCG(d.cfg.Seed, d.cfg.Seed)

	u, err := d.universe.Build(ctx, entries, d.cfg.StartDate)
	if err != nil {
		return nil, fmt.Errorf("failed to build universe: %w", err)
	}
	m, err := d.markets.Build(ctx, u)
	if err != nil {
		return nil, err
	}
	if !m.World.Valid() {
		return nil, fmt.Errorf("world index never positive: %w", domain.ErrDataUnavailable)
	}

	totalMarketCap := u.TotalMarketCap()
	pop, err := population.Generate(d.cfg, u.Tickers(), totalMarketCap, src)
	if err != nil {
		return nil, fmt.Errorf("failed to generate population: %w", err)
	}
	sampler := trend.NewSampler(m, u.Companies, totalMarketCap, src)

	days := d.cfg.Days
	if days <= 0 {
		days = daysAfter(m.World.Dates, u.StartDate)
	}

	r := &run{
		result: &Result{
			RunID:     uuid.New().String(),
			Seed:      d.cfg.Seed,
			StartDate: u.StartDate,
			Strategy:  d.strategy.Name(),
			Companies: u.Companies,
			History:   make(map[string][]CompanyRecord),
			Agents:    pop.Agents,
			Market:    m,
		},
		companies: make(map[string]*domain.CompanySnapshot, len(u.Companies)),
		agents:    pop.Agents,
	}
	for i := range u.Companies {
		c := u.Companies[i]
		r.companies[c.Ticker] = &c
	}

	if d.runs != nil {
		err := d.runs.CreateRun(population.Run{
			ID:         r.result.RunID,
			Seed:       d.cfg.Seed,
			StartDate:  u.StartDate,
			PoolSize:   len(pop.Agents),
			Gini:       d.cfg.Gini,
			MeanIncome: d.cfg.MeanIncome,
			CreatedAt:  time.Now(),
		})
		if err != nil {
			return nil, err
		}
	}

	d.log.Info().
		Str("run_id", r.result.RunID).
		Uint64("seed", d.cfg.Seed).
		Int("companies", len(u.Companies)).
		Int("agents", len(pop.Agents)).
		Int("days", days).
		Str("strategy", d.strategy.Name()).
		Msg("Starting simulation")

	// Opening session: every agent trades against the start-date trends
	r.record(0)
	opening := sampler.Sample()
	r.result.Trades += d.session(r, 0, opening, true)

	for day := 1; day <= days; day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := d.step(r, sampler, day)
		r.result.Days = append(r.result.Days, out)
		r.result.Trades += out.Trades

		if d.runs != nil {
			if err := d.runs.SaveTrends(r.result.RunID, day, out.Date, out.Trends); err != nil {
				return nil, err
			}
		}
	}

	if d.runs != nil {
		if err := d.runs.SaveAgents(r.result.RunID, r.agents); err != nil {
			return nil, err
		}
		if err := d.runs.FinishRun(r.result.RunID, days); err != nil {
			return nil, err
		}
	}

	d.log.Info().
		Str("run_id", r.result.RunID).
		Int("days", days).
		Int("trades", r.result.Trades).
		Dur("took", elapsed()).
		Msg("Simulation completed")

	if d.publisher != nil {
		data := &events.SimulationCompletedData{
			RunID:     r.result.RunID,
			Seed:      d.cfg.Seed,
			Days:      days,
			Agents:    len(r.agents),
			Companies: len(u.Companies),
		}
		if err := d.publisher.Publish(ctx, "simulation", data); err != nil {
			d.log.Warn().Err(err).Msg("Failed to publish simulation result")
		}
	}
	return r.result, nil
}

// step advances one day: income, trends, trading, history.
func (d *Driver) step(r *run, sampler *trend.Sampler, day int) Day {
	out := Day{
		Day:  day,
		Date: r.result.StartDate.AddDate(0, 0, day),
	}
	for _, a := range r.agents {
		out.Income += a.CreditIncome(day)
	}
	out.Trends = sampler.Sample()
	out.Trades = d.session(r, day, out.Trends, false)
	r.record(day)
	return out
}

// session lets agents act on one day. Outside the opening session only
// agents whose trade threshold passes take part.
func (d *Driver) session(r *run, day int, trends trend.Trends, initial bool) int {
	view := population.MarketView{
		Day:         day,
		Trends:      trends,
		Companies:   r.snapshots(),
		Technical:   make(map[string]float64, len(r.companies)),
		Fundamental: make(map[string]float64, len(r.companies)),
	}
	for ticker, c := range r.companies {
		view.Technical[ticker] = technicalInfluence(r.result.History[ticker], day, c.VolatilityIndex)
		view.Fundamental[ticker] = universe.FundamentalInfluence(*c)
	}

	trades := 0
	for _, a := range r.agents {
		if !initial && !a.CanTrade(1) {
			continue
		}
		for _, in := range d.strategy.Decide(a, view, initial) {
			if r.settle(a, in) {
				trades++
			}
		}
	}
	return trades
}

// settle applies an intent to the agent at the company's price. Buys are
// clipped to what the agent can afford and sells to what it holds.
func (r *run) settle(a *population.TraderAgent, in population.Intent) bool {
	c, ok := r.companies[in.Ticker]
	if !ok || !c.Active || c.Price <= 0 || in.Quantity <= 0 {
		return false
	}

	qty := in.Quantity
	switch in.Side {
	case population.SideBuy:
		affordable := int64(math.Floor(a.Balance / c.Price))
		if qty > affordable {
			qty = affordable
		}
		if qty <= 0 {
			return false
		}
		a.Balance -= float64(qty) * c.Price
		a.Holdings[in.Ticker] += qty
	case population.SideSell:
		held := a.Holding(in.Ticker)
		if qty > held {
			qty = held
		}
		if qty <= 0 {
			return false
		}
		a.Balance += float64(qty) * c.Price
		if held == qty {
			delete(a.Holdings, in.Ticker)
		} else {
			a.Holdings[in.Ticker] = held - qty
		}
	default:
		return false
	}
	return true
}

// record appends every active company's state for day.
func (r *run) record(day int) {
	for ticker, c := range r.companies {
		if !c.Active {
			continue
		}
		r.result.History[ticker] = append(r.result.History[ticker], CompanyRecord{
			Day:             day,
			Price:           c.Price,
			MarketCap:       c.MarketCap,
			VolatilityIndex: c.VolatilityIndex,
		})
	}
}

func (r *run) snapshots() []domain.CompanySnapshot {
	out := make([]domain.CompanySnapshot, 0, len(r.result.Companies))
	for _, c := range r.result.Companies {
		out = append(out, *r.companies[c.Ticker])
	}
	return out
}

// technicalInfluence is the price change over the lookback scaled by the
// volatility index. Short histories compare against their first record.
func technicalInfluence(records []CompanyRecord, day int, volatility float64) float64 {
	if len(records) == 0 {
		return 0
	}
	current := records[len(records)-1]
	past := records[0]
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Day <= day-TechnicalLookback {
			past = records[i]
			break
		}
	}
	if past.Price <= 0 {
		return 0
	}
	return (current.Price/past.Price - 1) * volatility
}

// daysAfter counts the index dates after start.
func daysAfter(dates []time.Time, start time.Time) int {
	start = domain.Day(start)
	n := 0
	for _, dt := range dates {
		if dt.After(start) {
			n++
		}
	}
	return n
}
