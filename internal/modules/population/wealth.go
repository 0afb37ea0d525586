package population

import (
	"fmt"
	"math/rand/v2"

	"github.com/aristath/playground/internal/domain"
)

// WealthClasses are [min, max) wealth brackets with the population share of
// each. The top bracket runs from the last threshold to TopMax.
type WealthClasses struct {
	Thresholds []float64
	Shares     []float64
	TopMax     float64
	// Observed counts how many agents were drawn into each bracket.
	Observed []int

	cumulative []float64
	rng        *rand.Rand
}

// NewWealthClasses builds the brackets. TopMax is totalMarketCap/poolSize.
func NewWealthClasses(thresholds, shares []float64, totalMarketCap float64, poolSize int, src rand.Source) (*WealthClasses, error) {
	if len(shares) != len(thresholds)+1 {
		return nil, fmt.Errorf("%w: %d shares for %d thresholds", domain.ErrConfiguration, len(shares), len(thresholds))
	}
	if poolSize <= 0 {
		return nil, fmt.Errorf("%w: pool size %d", domain.ErrConfiguration, poolSize)
	}

	w := &WealthClasses{
		Thresholds: thresholds,
		Shares:     shares,
		TopMax:     totalMarketCap / float64(poolSize),
		Observed:   make([]int, len(shares)),
		cumulative: make([]float64, len(shares)),
		rng:        rand.New(src),
	}
	sum := 0.0
	for i, s := range shares {
		sum += s
		w.cumulative[i] = sum
	}
	return w, nil
}

// Bounds returns the [min, max) of bracket i.
func (w *WealthClasses) Bounds(i int) (float64, float64) {
	if i < len(w.Thresholds) {
		lo := 0.0
		if i > 0 {
			lo = w.Thresholds[i-1]
		}
		return lo, w.Thresholds[i]
	}
	if len(w.Thresholds) == 0 {
		return 0, w.TopMax
	}
	return w.Thresholds[len(w.Thresholds)-1], w.TopMax
}

// Class returns the first bracket whose cumulative share exceeds u.
func (w *WealthClasses) Class(u float64) int {
	for i, c := range w.cumulative {
		if u < c {
			return i
		}
	}
	return len(w.cumulative) - 1
}

// Draw picks a bracket and a uniform balance inside it, and counts the draw.
func (w *WealthClasses) Draw() (int, float64) {
	class := w.Class(w.rng.Float64())
	w.Observed[class]++
	lo, hi := w.Bounds(class)
	return class, lo + w.rng.Float64()*(hi-lo)
}
