package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/playground/internal/domain"
	"github.com/aristath/playground/pkg/formulas"
)

// periodReturn is (pnlNow - pnlThen) / (costNow + pnlThen) * 100, 0 when the
// denominator vanishes.
func periodReturn(totalPnL, totalCost, prevPnL float64) float64 {
	denom := totalCost + prevPnL
	if denom == 0 {
		return 0
	}
	return (totalPnL - prevPnL) / denom * 100
}

// MonthlyReturnAt compares the current PnL with the latest snapshot taken in
// a calendar month before asOf's month. Points must be ascending by date.
func MonthlyReturnAt(points []Point, asOf time.Time, totalPnL, totalCost float64) float64 {
	monthStart := domain.MonthStart(asOf)

	var prev *Point
	for i := range points {
		if !points[i].Date.Before(monthStart) {
			break
		}
		prev = &points[i]
	}
	if prev == nil {
		return 0
	}
	return periodReturn(totalPnL, totalCost, prev.TotalPnL)
}

// ReturnSinceAt compares the current PnL with the snapshot closest to since.
// Points must be ascending by date; the scan stops once distance grows.
func ReturnSinceAt(points []Point, since time.Time, totalPnL, totalCost float64) float64 {
	var closest *Point
	best := math.MaxFloat64
	prevDist := math.MaxFloat64

	for i := range points {
		dist := math.Abs(points[i].Date.Sub(since).Hours())
		if dist > prevDist {
			break
		}
		if dist < best {
			best = dist
			closest = &points[i]
		}
		prevDist = dist
	}
	if closest == nil {
		return 0
	}
	return periodReturn(totalPnL, totalCost, closest.TotalPnL)
}

// MonthlyPoint is one month of the collapsed snapshot series.
type MonthlyPoint struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return_since_last_month"`
}

// MonthlySeries keeps the latest snapshot of every calendar month. Among
// snapshots with the same date the later one wins.
func MonthlySeries(points []Point) []MonthlyPoint {
	out := make([]MonthlyPoint, 0)
	for _, p := range points {
		n := len(out)
		if n > 0 && domain.SameMonth(out[n-1].Date, p.Date) {
			if !p.Date.Before(out[n-1].Date) {
				out[n-1] = MonthlyPoint{Date: p.Date, Return: p.ReturnSinceLastMonth}
			}
			continue
		}
		out = append(out, MonthlyPoint{Date: p.Date, Return: p.ReturnSinceLastMonth})
	}
	return out
}

// Returns extracts the return column of a monthly series.
func Returns(series []MonthlyPoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Return
	}
	return out
}

// TotalVolatility is the population std of the monthly returns annualized by sqrt(12).
func TotalVolatility(series []MonthlyPoint) float64 {
	returns := Returns(series)
	if len(returns) == 0 {
		return 0
	}
	return formulas.PopStdDev(returns) * math.Sqrt(12)
}

func excess(returns, riskFree []float64) ([]float64, error) {
	ex, ok := formulas.ExcessReturns(returns, riskFree)
	if !ok {
		return nil, fmt.Errorf("%w: %d returns vs %d risk-free rates", domain.ErrSeriesLength, len(returns), len(riskFree))
	}
	return ex, nil
}

// Sharpe is mean(excess)/std(excess). A sample without spread returns 0 and
// ErrDegenerateDistribution.
func Sharpe(returns, riskFree []float64) (float64, error) {
	ex, err := excess(returns, riskFree)
	if err != nil {
		return 0, err
	}
	ratio := formulas.SharpeRatio(ex)
	if ratio == nil {
		return 0, domain.ErrDegenerateDistribution
	}
	return *ratio, nil
}

// Sortino is mean(excess)/std(downside); +Inf when no excess return is negative.
func Sortino(returns, riskFree []float64) (float64, error) {
	ex, err := excess(returns, riskFree)
	if err != nil {
		return 0, err
	}
	ratio := formulas.SortinoRatio(ex)
	if ratio == nil {
		return 0, domain.ErrDegenerateDistribution
	}
	return *ratio, nil
}

// Beta aligns both series on their most recent common months and divides
// their population covariance by the benchmark's population variance.
func Beta(returns, benchmark []float64) (float64, error) {
	a, b := formulas.AlignTail(returns, benchmark)
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: no overlapping months", domain.ErrSeriesLength)
	}
	beta := formulas.Beta(a, b)
	if beta == nil {
		return 0, domain.ErrDegenerateDistribution
	}
	return *beta, nil
}

// Alpha is mean(excess) - beta*mean(benchmark excess).
func Alpha(returns, benchmark, riskFree []float64) (float64, error) {
	beta, err := Beta(returns, benchmark)
	if err != nil {
		return 0, err
	}
	ex, err := excess(returns, riskFree)
	if err != nil {
		return 0, err
	}
	benchEx, err := excess(benchmark, riskFree)
	if err != nil {
		return 0, err
	}
	return formulas.Alpha(ex, benchEx, beta), nil
}
