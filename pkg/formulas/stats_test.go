package formulas

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPopulationMoments(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.InDelta(t, 5.0, Mean(data), 1e-12)
	assert.InDelta(t, 4.0, PopVariance(data), 1e-12)
	assert.InDelta(t, 2.0, PopStdDev(data), 1e-12)
	assert.InDelta(t, 32.0/7.0, Variance(data), 1e-12)
}

func TestPopCovariance_MatchesVarianceOnSelf(t *testing.T) {
	x := []float64{1, 3, -2, 8, 0.5}
	assert.InDelta(t, PopVariance(x), PopCovariance(x, x), 1e-12)
	assert.Equal(t, 0.0, PopCovariance(x, x[:2]))
}

func TestSum_SkipsNonFinite(t *testing.T) {
	assert.Equal(t, 3.0, Sum([]float64{1, math.NaN(), 2, math.Inf(1)}))
}

func TestLogReturnsAndVolatility(t *testing.T) {
	flat := []float64{10, 10, 10, 10}
	assert.Equal(t, 0.0, DailyVolatility(flat))

	r := LogReturns([]float64{100, 110, 0, 121})
	assert.Len(t, r, 1)
	assert.InDelta(t, math.Log(1.1), r[0], 1e-12)
}

func TestMonthlyReturns(t *testing.T) {
	d := func(m time.Month, day int) time.Time { return time.Date(2024, m, day, 0, 0, 0, 0, time.UTC) }
	dates := []time.Time{d(1, 2), d(1, 15), d(1, 31), d(2, 1), d(2, 28), d(3, 1)}
	closes := []float64{100, 105, 110, 120, 90, 95}

	got := MonthlyReturns(dates, closes)

	// January 100 -> 110, February 120 -> 90, March has a single observation.
	assert.Len(t, got, 2)
	assert.InDelta(t, 10.0, got[0], 1e-9)
	assert.InDelta(t, -25.0, got[1], 1e-9)
}

func TestMonthlyReturns_TrailingPartialMonth(t *testing.T) {
	d := func(m time.Month, day int) time.Time { return time.Date(2023, m, day, 0, 0, 0, 0, time.UTC) }
	dates := []time.Time{d(12, 1), d(12, 29), d(1, 2).AddDate(1, 0, 0), d(1, 10).AddDate(1, 0, 0)}
	closes := []float64{50, 55, 60, 66}

	got := MonthlyReturns(dates, closes)
	assert.Len(t, got, 2)
	assert.InDelta(t, 10.0, got[0], 1e-9)
	assert.InDelta(t, 10.0, got[1], 1e-9)
}

func TestInterp(t *testing.T) {
	xp := []float64{0.25, 0.5, 0.75, 1.0}
	fp := []float64{-2, -1, 1, 3}

	assert.Equal(t, -2.0, Interp(0.1, xp, fp))
	assert.Equal(t, 3.0, Interp(1.0, xp, fp))
	assert.InDelta(t, 0.0, Interp(0.625, xp, fp), 1e-12)
	assert.InDelta(t, -1.5, Interp(0.375, xp, fp), 1e-12)
}

func TestClip(t *testing.T) {
	assert.Equal(t, 1.0, Clip(5, -1, 1))
	assert.Equal(t, -1.0, Clip(-5, -1, 1))
	assert.Equal(t, 0.3, Clip(0.3, -1, 1))
}
