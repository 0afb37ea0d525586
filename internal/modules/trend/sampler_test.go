package trend

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/playground/internal/domain"
	"github.com/aristath/playground/internal/modules/indices"
)

func dist(values ...float64) indices.Distribution {
	cdf := make([]float64, len(values))
	for i := range cdf {
		cdf[i] = float64(i+1) / float64(len(values))
	}
	return indices.Distribution{SortedChanges: values, CDF: cdf}
}

func market() (*indices.Market, []domain.CompanySnapshot) {
	m := &indices.Market{
		World: &indices.Index{Kind: indices.KindWorld, Name: "world", Distribution: dist(-1, 0, 1)},
		Sectors: map[string]*indices.Index{
			"Energy":     {Kind: indices.KindSector, Name: "Energy", Distribution: dist(-4, -1, 2, 5)},
			"Technology": {Kind: indices.KindSector, Name: "Technology", Distribution: dist(-3, 0, 3)},
		},
		Regions: map[string]*indices.Index{
			"Europe":        {Kind: indices.KindRegion, Name: "Europe", Distribution: dist(-2, 2)},
			"North America": {Kind: indices.KindRegion, Name: "North America", Distribution: dist(0.5, 0.5)},
		},
	}
	companies := []domain.CompanySnapshot{
		{Ticker: "A", Sector: "Technology", Region: "North America", MarketCap: 300, Active: true},
		{Ticker: "B", Sector: "Energy", Region: "Europe", MarketCap: 100, Active: true},
		{Ticker: "C", Sector: "Technology", Region: "Europe", MarketCap: 100, Active: true},
	}
	return m, companies
}

func TestSample_BoundsAndPositions(t *testing.T) {
	m, companies := market()
	s := NewSampler(m, companies, 500, rand.NewPCG(1, 2))

	for i := 0; i < 200; i++ {
		tr := s.Sample()
		require.Len(t, tr.Sectors, 2)
		require.Len(t, tr.Regions, 2)

		for name, st := range tr.Sectors {
			d := m.Sectors[name].Distribution
			assert.GreaterOrEqual(t, st.Value, d.Min())
			assert.LessOrEqual(t, st.Value, d.Max())
			assert.GreaterOrEqual(t, st.Position, 0.0)
			assert.LessOrEqual(t, st.Position, 1.0)
		}
		assert.GreaterOrEqual(t, tr.World.Value, -1.0)
		assert.LessOrEqual(t, tr.World.Value, 1.0)

		// degenerate region distribution pins value and position
		na := tr.Regions["North America"]
		assert.Equal(t, 0.5, na.Value)
		assert.Equal(t, 0.5, na.Position)
	}
}

func TestSample_RegionIsCapWeightedBlend(t *testing.T) {
	m, companies := market()
	m.Regions["Europe"].Distribution = dist(-100, 100)
	s := NewSampler(m, companies, 500, rand.NewPCG(7, 7))

	tr := s.Sample()
	want := (100*tr.Sectors["Energy"].Value + 100*tr.Sectors["Technology"].Value) / 200
	assert.InDelta(t, want, tr.Regions["Europe"].Value, 1e-12)
}

func TestSample_WorldUsesTotalMarketCap(t *testing.T) {
	m, companies := market()
	m.World.Distribution = dist(-100, 100)
	s := NewSampler(m, companies, 1000, rand.NewPCG(3, 4))

	tr := s.Sample()
	want := (400*tr.Sectors["Technology"].Value + 100*tr.Sectors["Energy"].Value) / 1000
	assert.InDelta(t, want, tr.World.Value, 1e-12)
}

func TestSample_ReproducibleWithSeed(t *testing.T) {
	m, companies := market()
	a := NewSampler(m, companies, 500, rand.NewPCG(42, 0))
	b := NewSampler(m, companies, 500, rand.NewPCG(42, 0))
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Sample(), b.Sample())
	}
}

func TestSample_ZeroCapital(t *testing.T) {
	m, _ := market()
	s := NewSampler(m, nil, 0, rand.NewPCG(1, 1))
	tr := s.Sample()
	assert.Equal(t, 0.0, tr.World.Value)
	assert.Equal(t, 0.5, tr.World.Position)
}
