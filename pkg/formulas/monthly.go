package formulas

import "time"

// MonthlyReturns splits a dated close series into calendar months and returns
// each month's % change from its first close to its last close. The first
// month starts at the first observation; a trailing partial month spanning
// at least two observations is included and ends at the final close. dates must be ascending and match closes in length.
func MonthlyReturns(dates []time.Time, closes []float64) []float64 {
	if len(dates) < 2 || len(dates) != len(closes) {
		return []float64{}
	}

	var out []float64
	start := closes[0]
	year, month := dates[0].Year(), dates[0].Month()

	for i := 1; i < len(dates); i++ {
		y, m := dates[i].Year(), dates[i].Month()
		if y == year && m == month {
			continue
		}
		out = append(out, pctChange(start, closes[i-1]))
		start = closes[i]
		year, month = y, m
	}

	// Trailing month, only when it spans more than one observation.
	last := len(closes) - 1
	if dates[last].Year() != dates[last-1].Year() || dates[last].Month() != dates[last-1].Month() {
		return out
	}
	return append(out, pctChange(start, closes[last]))
}

// MonthlyVolatility annualizes the std of MonthlyReturns by sqrt(12).
func MonthlyVolatility(dates []time.Time, closes []float64) float64 {
	return AnnualizedVolatility(MonthlyReturns(dates, closes), 12)
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}
