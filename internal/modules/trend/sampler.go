// Package trend samples a simulated daily market trend per sector, region
// and the world from the empirical index distributions.
package trend

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aristath/playground/internal/domain"
	"github.com/aristath/playground/internal/modules/indices"
)

// Trend is one grouping's simulated daily change (%) and where it sits in
// the grouping's historical range, 0 at the worst day and 1 at the best.
type Trend struct {
	Value    float64 `json:"value" msgpack:"value"`
	Position float64 `json:"position" msgpack:"position"`
}

// Trends is one day's sample for every grouping.
type Trends struct {
	World   Trend            `json:"world" msgpack:"world"`
	Sectors map[string]Trend `json:"sectors" msgpack:"sectors"`
	Regions map[string]Trend `json:"regions" msgpack:"regions"`
}

// Sampler draws sector trends by inverse transform sampling and rebuilds
// region and world trends from them, weighted by start-date market caps.
type Sampler struct {
	market           *indices.Market
	sectors          []string
	regions          []string
	sectorCaps       map[string]float64
	regionSectorCaps map[string]map[string]float64
	totalMarketCap   float64
	uniform          distuv.Uniform
}

// NewSampler prepares a sampler. totalMarketCap is the capital base of the
// world trend; src makes draws reproducible.
func NewSampler(m *indices.Market, companies []domain.CompanySnapshot, totalMarketCap float64, src rand.Source) *Sampler {
	s := &Sampler{
		market:           m,
		sectorCaps:       make(map[string]float64),
		regionSectorCaps: make(map[string]map[string]float64),
		totalMarketCap:   totalMarketCap,
		uniform:          distuv.Uniform{Min: 0, Max: 1, Src: src},
	}

	for _, c := range companies {
		s.sectorCaps[c.Sector] += c.MarketCap
		if s.regionSectorCaps[c.Region] == nil {
			s.regionSectorCaps[c.Region] = make(map[string]float64)
		}
		s.regionSectorCaps[c.Region][c.Sector] += c.MarketCap
	}

	for name := range m.Sectors {
		s.sectors = append(s.sectors, name)
	}
	for name := range m.Regions {
		s.regions = append(s.regions, name)
	}
	sort.Strings(s.sectors)
	sort.Strings(s.regions)
	return s
}

// Sample draws one day. Sectors are drawn in name order so a given source
// always yields the same sequence.
func (s *Sampler) Sample() Trends {
	out := Trends{
		Sectors: make(map[string]Trend, len(s.sectors)),
		Regions: make(map[string]Trend, len(s.regions)),
	}

	for _, name := range s.sectors {
		d := s.market.Sectors[name].Distribution
		v := d.Quantile(s.uniform.Rand())
		out.Sectors[name] = Trend{Value: v, Position: d.Position(v)}
	}

	for _, name := range s.regions {
		v := s.blend(s.regionSectorCaps[name], out.Sectors, s.sum(s.regionSectorCaps[name]))
		out.Regions[name] = bounded(s.market.Regions[name].Distribution, v)
	}

	out.World = bounded(s.market.World.Distribution, s.blend(s.sectorCaps, out.Sectors, s.totalMarketCap))
	return out
}

// blend is the % change of base after each sector's capital moves by its trend.
// Sectors are summed in name order so results are reproducible.
func (s *Sampler) blend(caps map[string]float64, sectors map[string]Trend, base float64) float64 {
	if base == 0 {
		return 0
	}
	moved := 0.0
	for _, sector := range s.sectors {
		c := caps[sector]
		if c == 0 {
			continue
		}
		moved += c * sectors[sector].Value / 100
	}
	return moved / base * 100
}

func bounded(d indices.Distribution, v float64) Trend {
	v = d.Clip(v)
	return Trend{Value: v, Position: d.Position(v)}
}

func (s *Sampler) sum(caps map[string]float64) float64 {
	total := 0.0
	for _, sector := range s.sectors {
		total += caps[sector]
	}
	return total
}
