package indices

import (
	"math"
	"sort"
	"time"

	"github.com/aristath/playground/internal/domain"
	"github.com/aristath/playground/pkg/formulas"
)

// Kind is the grouping an index is built over.
type Kind string

const (
	KindWorld  Kind = "world"
	KindSector Kind = "sector"
	KindRegion Kind = "region"
)

// Key identifies an index, e.g. "world" or "sector:Technology".
func Key(kind Kind, name string) string {
	if kind == KindWorld {
		return string(KindWorld)
	}
	return string(kind) + ":" + name
}

// Index is a composite price level series and its returns relative to the
// first day the level is positive (T0). Returns before T0 are NaN.
type Index struct {
	Kind         Kind
	Name         string
	Dates        []time.Time
	PriceIndex   []float64
	IndexReturns []float64
	T0           int
	Distribution Distribution
}

// Key returns the index key.
func (ix *Index) Key() string {
	return Key(ix.Kind, ix.Name)
}

// Valid reports whether the level ever becomes positive.
func (ix *Index) Valid() bool {
	return ix.T0 >= 0
}

// Build computes the weighted level sum(weight x adjClose) per day. Missing
// prices contribute zero.
func Build(kind Kind, name string, p *Panel, weights map[string][]float64) *Index {
	n := p.Len()
	level := make([]float64, n)
	for _, t := range p.Tickers {
		w, prices := weights[t], p.Prices[t]
		for i := 0; i < n; i++ {
			v := w[i] * prices[i]
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				level[i] += v
			}
		}
	}

	ix := &Index{
		Kind:         kind,
		Name:         name,
		Dates:        p.Dates,
		PriceIndex:   level,
		IndexReturns: make([]float64, n),
		T0:           -1,
	}
	for i, v := range level {
		if v > 0 {
			ix.T0 = i
			break
		}
	}

	base := 0.0
	if ix.T0 >= 0 {
		base = level[ix.T0]
	}
	for i := range level {
		if ix.T0 < 0 || i < ix.T0 {
			ix.IndexReturns[i] = math.NaN()
			continue
		}
		ix.IndexReturns[i] = (level[i]/base - 1) * 100
	}

	ix.Distribution = NewDistribution(level, ix.T0)
	return ix
}

// DailyChanges returns the % change of each positive level from the previous
// positive level, starting with 0 on t0. Days with a zero level are skipped.
func DailyChanges(level []float64, t0 int) []float64 {
	if t0 < 0 || t0 >= len(level) {
		return nil
	}
	changes := []float64{0}
	prev := level[t0]
	for i := t0 + 1; i < len(level); i++ {
		if level[i] <= 0 {
			continue
		}
		changes = append(changes, (level[i]-prev)/prev*100)
		prev = level[i]
	}
	return changes
}

// LevelAt returns the level on the last index day on or before day.
func (ix *Index) LevelAt(day time.Time) (float64, bool) {
	day = domain.Day(day)
	i := sort.Search(len(ix.Dates), func(i int) bool { return ix.Dates[i].After(day) }) - 1
	if i < 0 || i < ix.T0 {
		return 0, false
	}
	return ix.PriceIndex[i], true
}

// validRange returns the dates and levels from T0 on, skipping zero levels.
func (ix *Index) validRange() ([]time.Time, []float64) {
	if !ix.Valid() {
		return nil, nil
	}
	dates := make([]time.Time, 0, len(ix.Dates)-ix.T0)
	levels := make([]float64, 0, len(ix.Dates)-ix.T0)
	for i := ix.T0; i < len(ix.Dates); i++ {
		if ix.PriceIndex[i] > 0 {
			dates = append(dates, ix.Dates[i])
			levels = append(levels, ix.PriceIndex[i])
		}
	}
	return dates, levels
}

// MonthlyReturns returns the per-calendar-month % change of the level.
func (ix *Index) MonthlyReturns() []float64 {
	dates, levels := ix.validRange()
	return formulas.MonthlyReturns(dates, levels)
}

// MonthlyReturnsSince is MonthlyReturns restricted to days on or after since.
func (ix *Index) MonthlyReturnsSince(since time.Time) []float64 {
	dates, levels := ix.validRange()
	since = domain.Day(since)
	i := sort.Search(len(dates), func(i int) bool { return !dates[i].Before(since) })
	return formulas.MonthlyReturns(dates[i:], levels[i:])
}

// ReturnSince is the % change from the first level on or after since to the
// latest level.
func (ix *Index) ReturnSince(since time.Time) (float64, bool) {
	dates, levels := ix.validRange()
	since = domain.Day(since)
	i := sort.Search(len(dates), func(i int) bool { return !dates[i].Before(since) })
	if i >= len(levels) {
		return 0, false
	}
	first, last := levels[i], levels[len(levels)-1]
	return (last - first) / first * 100, true
}
