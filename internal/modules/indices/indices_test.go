package indices

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/aristath/playground/internal/database"
	"github.com/aristath/playground/internal/domain"
	testingpkg "github.com/aristath/playground/internal/testing"
)

func fixture() ([]domain.CompanySnapshot, map[string]domain.SecurityHistory) {
	start := testingpkg.Day(2024, 1, 1)
	histories := map[string]domain.SecurityHistory{
		"AAA": testingpkg.NewTrendingHistory("AAA", start, 120, 100, 0.2),
		"BBB": testingpkg.NewTrendingHistory("BBB", start, 120, 50, -0.1),
		"CCC": testingpkg.NewTrendingHistory("CCC", start.AddDate(0, 0, 30), 90, 20, 0.05),
		"DDD": testingpkg.NewTrendingHistory("DDD", start, 120, 10, 0.3),
	}
	companies := []domain.CompanySnapshot{
		{Ticker: "AAA", Sector: "Technology", Region: "North America", SharesOutstanding: 1000},
		{Ticker: "BBB", Sector: "Energy", Region: "Europe", SharesOutstanding: 3000},
		{Ticker: "CCC", Sector: "Technology", Region: "Europe", SharesOutstanding: 500},
		{Ticker: "DDD", Sector: "Energy", Region: "North America", SharesOutstanding: 8000},
	}
	return companies, histories
}

func TestPanel_AlignsOnUnionWithNaN(t *testing.T) {
	start := testingpkg.Day(2024, 1, 1)
	p := NewPanel(map[string]domain.SecurityHistory{
		"A": testingpkg.NewHistory("A", start, 1, 2, 3),
		"B": testingpkg.NewHistory("B", start.AddDate(0, 0, 2), 10, 20),
	})

	require.Equal(t, 4, p.Len())
	assert.Equal(t, []string{"A", "B"}, p.Tickers)
	assert.True(t, math.IsNaN(p.Prices["A"][3]))
	assert.True(t, math.IsNaN(p.Prices["B"][0]))
	assert.Equal(t, 10.0, p.Prices["B"][2])
}

func TestWeights_SumToOneOrZero(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nTickers := rapid.IntRange(1, 6).Draw(t, "tickers")
		n := rapid.IntRange(1, 20).Draw(t, "days")

		caps := make(map[string][]float64, nTickers)
		tickers := make([]string, nTickers)
		for i := range tickers {
			tickers[i] = string(rune('A' + i))
			col := make([]float64, n)
			for d := range col {
				switch rapid.IntRange(0, 4).Draw(t, "kind") {
				case 0:
					col[d] = math.NaN()
				case 1:
					col[d] = 0
				default:
					col[d] = rapid.Float64Range(1, 1e12).Draw(t, "cap")
				}
			}
			caps[tickers[i]] = col
		}

		w := Weights(caps, tickers, n)
		total := CapitalBase(caps, tickers, n)
		for d := 0; d < n; d++ {
			sum := 0.0
			for _, tk := range tickers {
				sum += w[tk][d]
			}
			if total[d] > 0 {
				if math.Abs(sum-1) > 1e-9 {
					t.Fatalf("day %d: weights sum to %v", d, sum)
				}
			} else if sum != 0 {
				t.Fatalf("day %d: zero-cap day has weight sum %v", d, sum)
			}
		}
	})
}

func TestBuild_ReturnsZeroAtT0(t *testing.T) {
	start := testingpkg.Day(2024, 1, 1)
	p := NewPanel(map[string]domain.SecurityHistory{
		"A": testingpkg.NewHistory("A", start.AddDate(0, 0, 2), 10, 11, 12),
		"B": testingpkg.NewHistory("B", start, 0, 0, 5, 6, 4),
	})
	caps := MarketCaps(p, map[string]float64{"A": 10, "B": 10})
	ix := Build(KindWorld, "world", p, Weights(caps, p.Tickers, p.Len()))

	require.Equal(t, 2, ix.T0)
	assert.Equal(t, 0.0, ix.IndexReturns[ix.T0])
	assert.True(t, math.IsNaN(ix.IndexReturns[0]))
	assert.Len(t, ix.Distribution.SortedChanges, 3)
	assert.Equal(t, []float64{1.0 / 3, 2.0 / 3, 1}, ix.Distribution.CDF)
}

func TestBuild_NeverPositive(t *testing.T) {
	p := NewPanel(map[string]domain.SecurityHistory{
		"A": testingpkg.NewHistory("A", testingpkg.Day(2024, 1, 1), 0, 0),
	})
	ix := Build(KindSector, "Empty", p, Weights(MarketCaps(p, map[string]float64{"A": 1}), p.Tickers, p.Len()))
	assert.False(t, ix.Valid())
	assert.True(t, ix.Distribution.Empty())
	assert.Equal(t, 0.5, ix.Distribution.Position(1))
}

func TestDailyChanges_PreviousDayDenominator(t *testing.T) {
	changes := DailyChanges([]float64{0, 100, 110, 0, 99}, 1)
	require.Len(t, changes, 3)
	assert.Equal(t, 0.0, changes[0])
	assert.InDelta(t, 10.0, changes[1], 1e-12)
	assert.InDelta(t, -10.0, changes[2], 1e-12)
}

func TestDistribution_QuantileAndPosition(t *testing.T) {
	d := Distribution{SortedChanges: []float64{-2, 0, 2, 4}, CDF: []float64{0.25, 0.5, 0.75, 1}}
	assert.Equal(t, -2.0, d.Quantile(0.1))
	assert.InDelta(t, 1.0, d.Quantile(0.625), 1e-12)
	assert.Equal(t, 4.0, d.Quantile(1))
	assert.Equal(t, 4.0, d.Clip(9))
	assert.InDelta(t, 0.5, d.Position(1), 1e-12)

	flat := Distribution{SortedChanges: []float64{1, 1}, CDF: []float64{0.5, 1}}
	assert.True(t, flat.Degenerate())
	assert.Equal(t, 0.5, flat.Position(1))
}

func TestPartition_IsDisjointCover(t *testing.T) {
	companies, _ := fixture()
	for _, kind := range []Kind{KindSector, KindRegion} {
		seen := map[string]int{}
		for _, g := range Partition(companies, kind) {
			for _, tk := range g.Tickers {
				seen[tk]++
			}
		}
		assert.Len(t, seen, len(companies))
		for tk, n := range seen {
			assert.Equal(t, 1, n, "%s in %d groups", tk, n)
		}
	}
}

func TestBuildAll_SectorCapitalReconstructsWorld(t *testing.T) {
	companies, histories := fixture()
	m, err := BuildAll(context.Background(), companies, histories)
	require.NoError(t, err)

	assert.Len(t, m.Sectors, 2)
	assert.Len(t, m.Regions, 2)

	n := m.Panel.Len()
	world := CapitalBase(m.Caps, m.Panel.Tickers, n)
	for _, kind := range []Kind{KindSector, KindRegion} {
		sum := make([]float64, n)
		for _, g := range Partition(companies, kind) {
			for i, v := range CapitalBase(m.Caps, g.Tickers, n) {
				sum[i] += v
			}
		}
		for i := range world {
			assert.InDelta(t, world[i], sum[i], 1e-6*world[i])
		}
	}
}

func TestBuildAll_ConcurrentEqualsSerial(t *testing.T) {
	companies, histories := fixture()
	m, err := BuildAll(context.Background(), companies, histories)
	require.NoError(t, err)

	for _, g := range Partition(companies, KindSector) {
		serial := BuildGroup(m.Panel, m.Caps, g)
		assert.Equal(t, serial.PriceIndex, m.Sectors[g.Name].PriceIndex)
		assert.Equal(t, serial.Distribution, m.Sectors[g.Name].Distribution)
	}
}

func TestBuildAll_MissingHistorySkipsTicker(t *testing.T) {
	companies, histories := fixture()
	delete(histories, "AAA")
	m, err := BuildAll(context.Background(), companies, histories)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA"}, m.Skipped)
	assert.NotContains(t, m.Panel.Tickers, "AAA")
	require.NotNil(t, m.World)
	assert.True(t, m.World.Valid())
	for _, w := range Weights(m.Caps, []string{"AAA"}, m.Panel.Len())["AAA"] {
		assert.Zero(t, w)
	}

	// Technology keeps CCC, North America keeps DDD.
	assert.Len(t, m.Sectors, 2)
	assert.Len(t, m.Regions, 2)

	without := companies[1:]
	expected, err := BuildAll(context.Background(), without, histories)
	require.NoError(t, err)
	assert.Equal(t, expected.World.PriceIndex, m.World.PriceIndex)
}

func TestBuildAll_NoHistoryAtAll(t *testing.T) {
	companies, _ := fixture()
	_, err := BuildAll(context.Background(), companies, map[string]domain.SecurityHistory{})
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	_, err = BuildAll(context.Background(), nil, nil)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestIndex_ReturnSinceAndMonthly(t *testing.T) {
	start := testingpkg.Day(2024, 1, 1)
	closes := make([]float64, 91)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	p := NewPanel(map[string]domain.SecurityHistory{"A": testingpkg.NewHistory("A", start, closes...)})
	ix := Build(KindWorld, "world", p, Weights(MarketCaps(p, map[string]float64{"A": 1}), p.Tickers, p.Len()))

	ret, ok := ix.ReturnSince(start.AddDate(0, 0, 10))
	require.True(t, ok)
	assert.InDelta(t, (190.0-110.0)/110.0*100, ret, 1e-9)

	_, ok = ix.ReturnSince(start.AddDate(1, 0, 0))
	assert.False(t, ok)

	monthly := ix.MonthlyReturns()
	require.Len(t, monthly, 3)
	assert.InDelta(t, (130.0-100.0)/100*100, monthly[0], 1e-9)

	level, ok := ix.LevelAt(start.Add(36 * time.Hour))
	require.True(t, ok)
	assert.Equal(t, 101.0, level)
}

func TestRepository_RoundTrip(t *testing.T) {
	companies, histories := fixture()
	m, err := BuildAll(context.Background(), companies, histories)
	require.NoError(t, err)

	db := testingpkg.NewTestDB(t, database.NameReference)
	repo := NewRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, repo.SaveMarket(m))

	loaded, err := repo.Load(Key(KindSector, "Technology"))
	require.NoError(t, err)
	orig := m.Sectors["Technology"]
	assert.Equal(t, orig.T0, loaded.T0)
	assert.Equal(t, orig.PriceIndex, loaded.PriceIndex)
	assert.Equal(t, orig.Distribution, loaded.Distribution)
	assert.Equal(t, len(orig.Dates), len(loaded.Dates))

	_, err = repo.Load("sector:Nope")
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}
