package simulation

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/playground/internal/config"
	"github.com/aristath/playground/internal/database"
	"github.com/aristath/playground/internal/domain"
	"github.com/aristath/playground/internal/events"
	"github.com/aristath/playground/internal/modules/indices"
	"github.com/aristath/playground/internal/modules/population"
	"github.com/aristath/playground/internal/modules/universe"
	testingpkg "github.com/aristath/playground/internal/testing"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.EventData
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, data events.EventData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, data)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// buyOnOpen buys Quantity of Ticker in the opening session only.
type buyOnOpen struct {
	Ticker   string
	Quantity int64
}

func (buyOnOpen) Name() string { return "buy_on_open" }

func (s buyOnOpen) Decide(_ *population.TraderAgent, _ population.MarketView, initial bool) []population.Intent {
	if !initial {
		return nil
	}
	return []population.Intent{{Ticker: s.Ticker, Side: population.SideBuy, Quantity: s.Quantity}}
}

func marketConfig(days int) config.MarketConfig {
	return config.MarketConfig{
		StartDate:          testingpkg.Day(2024, 1, 15),
		Days:               days,
		PoolSize:           25,
		Seed:               7,
		Gini:               0.67,
		MeanIncome:         13700,
		WealthDistribution: []float64{0.525, 0.344, 0.12, 0.011},
		WealthThresholds:   []float64{1e4, 1e5, 1e6},
		IncomeIntervalDays: 30,
		InsiderRatio:       0.02,
		TradeFrequencies:   population.DefaultTradeFrequencies,
	}
}

func newDriver(t *testing.T, cfg config.MarketConfig, runs *population.Repository, strategy population.DecisionStrategy, pub events.Publisher) *Driver {
	t.Helper()
	p := testingpkg.NewMockProvider()
	start := testingpkg.Day(2023, 12, 1)
	p.AddSecurity(testingpkg.NewFundamentals("AAA", "Technology", "North America", 1e9),
		testingpkg.NewTrendingHistory("AAA", start, 90, 100, 0.1))
	p.AddSecurity(testingpkg.NewFundamentals("BBB", "Energy", "Europe", 5e8),
		testingpkg.NewTrendingHistory("BBB", start, 90, 40, -0.05))

	builder := universe.NewBuilder(p, nil, zerolog.Nop())
	return New(builder, indices.NewService(nil, zerolog.Nop()), runs, strategy, pub, cfg, zerolog.Nop())
}

func entries() []universe.Entry {
	return universe.EntriesFor([]string{"AAA", "BBB"})
}

func TestRun_IsReproducible(t *testing.T) {
	first, err := newDriver(t, marketConfig(40), nil, nil, nil).Run(context.Background(), entries())
	require.NoError(t, err)
	second, err := newDriver(t, marketConfig(40), nil, nil, nil).Run(context.Background(), entries())
	require.NoError(t, err)

	require.Len(t, first.Days, 40)
	require.Len(t, second.Days, 40)
	for i := range first.Days {
		assert.Equal(t, first.Days[i].Trends, second.Days[i].Trends, "day %d", i+1)
		assert.Equal(t, first.Days[i].Income, second.Days[i].Income, "day %d", i+1)
	}
	for i := range first.Agents {
		assert.Equal(t, first.Agents[i].Balance, second.Agents[i].Balance)
	}
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, "no_trade", first.Strategy)
	assert.Zero(t, first.Trades)
}

func TestRun_StepsDaysAndRecordsHistory(t *testing.T) {
	res, err := newDriver(t, marketConfig(31), nil, nil, nil).Run(context.Background(), entries())
	require.NoError(t, err)

	assert.Equal(t, res.StartDate.AddDate(0, 0, 1), res.Days[0].Date)
	for _, d := range res.Days {
		assert.GreaterOrEqual(t, d.Trends.World.Position, 0.0)
		assert.LessOrEqual(t, d.Trends.World.Position, 1.0)
		assert.Len(t, d.Trends.Sectors, 2)
	}
	// income is paid on interval days only
	assert.Zero(t, res.Days[0].Income)
	assert.Greater(t, res.Days[29].Income, 0.0)

	// opening record plus one per day
	require.Len(t, res.History["AAA"], 32)
	price, ok := res.Price("AAA", 31)
	require.True(t, ok)
	open, _ := res.Price("AAA", 0)
	assert.Equal(t, open, price)
}

func TestRun_DefaultDaysFollowWorldIndex(t *testing.T) {
	res, err := newDriver(t, marketConfig(0), nil, nil, nil).Run(context.Background(), entries())
	require.NoError(t, err)

	// history runs 90 days from 2023-12-01; start is 2024-01-15
	assert.Len(t, res.Days, 44)
}

func TestRun_SettlesOpeningIntents(t *testing.T) {
	res, err := newDriver(t, marketConfig(5), nil, buyOnOpen{Ticker: "AAA", Quantity: 1}, nil).Run(context.Background(), entries())
	require.NoError(t, err)

	price, ok := res.Price("AAA", 0)
	require.True(t, ok)

	bought := 0
	for _, a := range res.Agents {
		if a.Holding("AAA") == 1 {
			bought++
		}
		assert.GreaterOrEqual(t, a.Balance, 0.0)
	}
	assert.Equal(t, bought, res.Trades)
	assert.Greater(t, bought, 0)
	assert.Greater(t, price, 0.0)
}

func TestRun_PersistsAndPublishes(t *testing.T) {
	db := testingpkg.NewTestDB(t, database.NameAgents)
	runs := population.NewRepository(db.Conn(), zerolog.Nop())
	pub := &recordingPublisher{}

	res, err := newDriver(t, marketConfig(12), runs, nil, pub).Run(context.Background(), entries())
	require.NoError(t, err)

	run, err := runs.GetRun(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 12, run.Days)
	assert.Equal(t, uint64(7), run.Seed)

	n, err := runs.CountTrendDays(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	agents, err := runs.LoadAgents(res.RunID, nil)
	require.NoError(t, err)
	assert.Len(t, agents, 25)

	require.Len(t, pub.events, 1)
	done, ok := pub.events[0].(*events.SimulationCompletedData)
	require.True(t, ok)
	assert.Equal(t, res.RunID, done.RunID)
	assert.Equal(t, 2, done.Companies)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newDriver(t, marketConfig(5), nil, nil, nil).Run(ctx, entries())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSettle_ClipsToBalanceAndHoldings(t *testing.T) {
	r := &run{companies: map[string]*domain.CompanySnapshot{
		"AAA": {Ticker: "AAA", Price: 10, Active: true},
	}}
	a := &population.TraderAgent{Balance: 35, Holdings: map[string]int64{}}

	assert.True(t, r.settle(a, population.Intent{Ticker: "AAA", Side: population.SideBuy, Quantity: 10}))
	assert.Equal(t, int64(3), a.Holding("AAA"))
	assert.InDelta(t, 5, a.Balance, 1e-9)

	assert.False(t, r.settle(a, population.Intent{Ticker: "AAA", Side: population.SideBuy, Quantity: 1}))

	assert.True(t, r.settle(a, population.Intent{Ticker: "AAA", Side: population.SideSell, Quantity: 5}))
	assert.Zero(t, a.Holding("AAA"))
	assert.NotContains(t, a.Holdings, "AAA")
	assert.InDelta(t, 35, a.Balance, 1e-9)

	assert.False(t, r.settle(a, population.Intent{Ticker: "AAA", Side: population.SideSell, Quantity: 1}))
	assert.False(t, r.settle(a, population.Intent{Ticker: "ZZZ", Side: population.SideBuy, Quantity: 1}))
}

func TestTechnicalInfluence(t *testing.T) {
	var records []CompanyRecord
	for day := 0; day <= 40; day++ {
		records = append(records, CompanyRecord{Day: day, Price: 100 + float64(day)})
	}

	// day 40 against day 10
	assert.InDelta(t, (140.0/110-1)*2, technicalInfluence(records, 40, 2), 1e-12)
	// short history falls back to the first record
	assert.InDelta(t, (105.0/100-1)*2, technicalInfluence(records[:6], 5, 2), 1e-12)
	assert.Zero(t, technicalInfluence(nil, 3, 2))
}
