package indices

import (
	"sort"

	"github.com/aristath/playground/pkg/formulas"
)

// Distribution is the empirical distribution of an index's daily % changes:
// ascending changes paired with cumulative probabilities (i+1)/n.
type Distribution struct {
	SortedChanges []float64 `json:"sorted_changes"`
	CDF           []float64 `json:"cdf"`
}

// NewDistribution builds the distribution of level's daily changes from t0.
func NewDistribution(level []float64, t0 int) Distribution {
	changes := DailyChanges(level, t0)
	sort.Float64s(changes)

	n := len(changes)
	cdf := make([]float64, n)
	for i := range cdf {
		cdf[i] = float64(i+1) / float64(n)
	}
	return Distribution{SortedChanges: changes, CDF: cdf}
}

// Empty reports whether there are no observations.
func (d Distribution) Empty() bool {
	return len(d.SortedChanges) == 0
}

// Min is the smallest observed change.
func (d Distribution) Min() float64 {
	if d.Empty() {
		return 0
	}
	return d.SortedChanges[0]
}

// Max is the largest observed change.
func (d Distribution) Max() float64 {
	if d.Empty() {
		return 0
	}
	return d.SortedChanges[len(d.SortedChanges)-1]
}

// Degenerate reports a distribution without spread.
func (d Distribution) Degenerate() bool {
	return d.Max() == d.Min()
}

// Quantile inverts the CDF at u by linear interpolation.
func (d Distribution) Quantile(u float64) float64 {
	return formulas.Interp(u, d.CDF, d.SortedChanges)
}

// Clip bounds v to the observed [Min, Max].
func (d Distribution) Clip(v float64) float64 {
	return formulas.Clip(v, d.Min(), d.Max())
}

// Position is (v - Min)/(Max - Min), or 0.5 when the distribution has no spread.
func (d Distribution) Position(v float64) float64 {
	if d.Degenerate() {
		return 0.5
	}
	return (v - d.Min()) / (d.Max() - d.Min())
}
