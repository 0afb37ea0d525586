package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcessReturns(t *testing.T) {
	ex, ok := ExcessReturns([]float64{1, 2, 3}, []float64{0.5})
	require.True(t, ok)
	assert.Equal(t, []float64{0.5, 1.5, 2.5}, ex)

	ex, ok = ExcessReturns([]float64{1, 2}, []float64{1, 1})
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1}, ex)

	_, ok = ExcessReturns([]float64{1, 2, 3}, []float64{1, 1})
	assert.False(t, ok)
}

func TestSharpeRatio(t *testing.T) {
	ratio := SharpeRatio([]float64{1, 3})
	require.NotNil(t, ratio)
	assert.InDelta(t, 2.0, *ratio, 1e-12)

	assert.Nil(t, SharpeRatio([]float64{2, 2, 2}))
	assert.Nil(t, SharpeRatio(nil))
}

func TestSortinoRatio_NoDownsideIsInfinite(t *testing.T) {
	ratio := SortinoRatio([]float64{0, 1.5, 2, 0.1})
	require.NotNil(t, ratio)
	assert.True(t, math.IsInf(*ratio, 1))
}

func TestSortinoRatio_UsesDownsideDeviation(t *testing.T) {
	excess := []float64{4, -1, -3, 4}
	ratio := SortinoRatio(excess)
	require.NotNil(t, ratio)
	// mean = 1, downside {-1,-3} has population std 1
	assert.InDelta(t, 1.0, *ratio, 1e-12)
}

func TestBetaAndAlpha(t *testing.T) {
	bench := []float64{1, -2, 3, 0.5}
	asset := make([]float64, len(bench))
	for i, b := range bench {
		asset[i] = 2*b + 1
	}

	beta := Beta(asset, bench)
	require.NotNil(t, beta)
	assert.InDelta(t, 2.0, *beta, 1e-12)
	assert.InDelta(t, 1.0, Alpha(asset, bench, *beta), 1e-12)

	assert.Nil(t, Beta(asset, []float64{1, 1, 1, 1}))
}

func TestAlignTail(t *testing.T) {
	a, b := AlignTail([]float64{1, 2, 3, 4}, []float64{9, 8})
	assert.Equal(t, []float64{3, 4}, a)
	assert.Equal(t, []float64{9, 8}, b)
}

func TestCalculateRSI(t *testing.T) {
	assert.Nil(t, CalculateRSI([]float64{1, 2, 3}, 14))

	rising := make([]float64, 30)
	for i := range rising {
		rising[i] = float64(100 + i)
	}
	rsi := CalculateRSI(rising, 14)
	require.NotNil(t, rsi)
	assert.InDelta(t, 100.0, *rsi, 1e-9)
}

func TestPercentChangeOver(t *testing.T) {
	closes := []float64{100, 50, 80, 120}
	got := PercentChangeOver(closes, 4)
	require.NotNil(t, got)
	assert.InDelta(t, 20.0, *got, 1e-12)
	assert.Nil(t, PercentChangeOver(closes, 5))
}
