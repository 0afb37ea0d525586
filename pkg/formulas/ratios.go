package formulas

import "math"

// ExcessReturns subtracts a risk-free series from returns. A single-element
// riskFree is broadcast; otherwise the lengths must match.
func ExcessReturns(returns, riskFree []float64) ([]float64, bool) {
	if len(riskFree) != 1 && len(riskFree) != len(returns) {
		return nil, false
	}
	excess := make([]float64, len(returns))
	for i, r := range returns {
		rf := riskFree[0]
		if len(riskFree) > 1 {
			rf = riskFree[i]
		}
		excess[i] = r - rf
	}
	return excess, true
}

// SharpeRatio is mean(excess)/std(excess) with the population std.
// Returns nil when the sample is empty or has no spread.
func SharpeRatio(excess []float64) *float64 {
	if len(excess) == 0 {
		return nil
	}
	std := PopStdDev(excess)
	if std == 0 {
		return nil
	}
	ratio := Mean(excess) / std
	return &ratio
}

// SortinoRatio is mean(excess)/std(downside), downside being the negative
// excess returns. With no downside observed the ratio is +Inf.
func SortinoRatio(excess []float64) *float64 {
	if len(excess) == 0 {
		return nil
	}

	downside := make([]float64, 0, len(excess))
	for _, r := range excess {
		if r < 0 {
			downside = append(downside, r)
		}
	}

	if len(downside) == 0 {
		inf := math.Inf(1)
		return &inf
	}

	std := PopStdDev(downside)
	if std == 0 {
		// A single downside observation has no spread.
		return nil
	}
	ratio := Mean(excess) / std
	return &ratio
}

// Beta is cov(asset, benchmark)/var(benchmark) over equal-length series.
// Both moments are population moments (divided by n). A sample covariance
// over a population variance would be larger by n/(n-1).
func Beta(asset, benchmark []float64) *float64 {
	if len(asset) == 0 || len(asset) != len(benchmark) {
		return nil
	}
	v := PopVariance(benchmark)
	if v == 0 {
		return nil
	}
	beta := PopCovariance(asset, benchmark) / v
	return &beta
}

// Alpha is mean(assetExcess) - beta*mean(benchmarkExcess).
func Alpha(assetExcess, benchmarkExcess []float64, beta float64) float64 {
	return Mean(assetExcess) - beta*Mean(benchmarkExcess)
}

// AlignTail trims both series to their common trailing length so the most
// recent observations line up.
func AlignTail(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[len(a)-n:], b[len(b)-n:]
}
