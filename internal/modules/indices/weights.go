package indices

import "math"

// MarketCapSeries is adjClose x shares for every day. Shares outstanding are
// held constant over the horizon. Missing prices stay NaN.
func MarketCapSeries(prices []float64, shares float64) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = p * shares
	}
	return out
}

// MarketCaps computes the market-cap series of every panel ticker.
func MarketCaps(p *Panel, shares map[string]float64) map[string][]float64 {
	out := make(map[string][]float64, len(p.Tickers))
	for _, t := range p.Tickers {
		out[t] = MarketCapSeries(p.Prices[t], shares[t])
	}
	return out
}

// CapitalBase is the summed market cap of tickers per day, missing days
// contributing zero.
func CapitalBase(caps map[string][]float64, tickers []string, n int) []float64 {
	total := make([]float64, n)
	for _, t := range tickers {
		for i, c := range caps[t] {
			if isPositiveFinite(c) {
				total[i] += c
			}
		}
	}
	return total
}

// Weights divides each ticker's market cap by the day's total. On a day with
// zero total every weight is zero. A ticker without a price that day gets
// weight zero.
func Weights(caps map[string][]float64, tickers []string, n int) map[string][]float64 {
	total := CapitalBase(caps, tickers, n)

	out := make(map[string][]float64, len(tickers))
	for _, t := range tickers {
		w := make([]float64, n)
		col := caps[t]
		for i := 0; i < n && i < len(col); i++ {
			if total[i] == 0 || !isPositiveFinite(col[i]) {
				continue
			}
			w[i] = col[i] / total[i]
		}
		out[t] = w
	}
	return out
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
