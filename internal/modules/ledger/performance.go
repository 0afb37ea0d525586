package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aristath/playground/internal/domain"
)

// Ratio is a statistic that may be infinite. It encodes +Inf and -Inf as
// strings and NaN as null, which encoding/json cannot represent.
type Ratio float64

// MarshalJSON implements json.Marshaler.
func (r Ratio) MarshalJSON() ([]byte, error) {
	v := float64(r)
	switch {
	case math.IsNaN(v):
		return []byte("null"), nil
	case math.IsInf(v, 1):
		return json.Marshal("+Inf")
	case math.IsInf(v, -1):
		return json.Marshal("-Inf")
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

func ratioOrNil(v float64, err error) *Ratio {
	if err != nil {
		return nil
	}
	r := Ratio(v)
	return &r
}

// Metrics is the performance report of the ledger.
type Metrics struct {
	AsOf                 time.Time          `json:"as_of"`
	Since                time.Time          `json:"since"`
	Months               int                `json:"months"`
	NetWorth             float64            `json:"net_worth"`
	TotalReturn          float64            `json:"total_return"`
	ReturnSinceLastMonth float64            `json:"return_since_last_month"`
	ReturnSince          float64            `json:"return_since"`
	RelativePerformance  *Ratio             `json:"relative_performance"`
	Sharpe               *Ratio             `json:"sharpe"`
	Sortino              *Ratio             `json:"sortino"`
	Beta                 *Ratio             `json:"beta"`
	Alpha                *Ratio             `json:"alpha"`
	Volatility           map[string]float64 `json:"volatility"`
	TotalVolatility      float64            `json:"total_volatility"`
}

// MonthlyReturn is the return since the latest snapshot of an earlier
// calendar month than asOf, 0 when there is none.
func (l *Ledger) MonthlyReturn(ctx context.Context, asOf time.Time) (float64, error) {
	s, err := l.Status()
	if err != nil {
		return 0, err
	}
	points, err := l.repo.Points(ctx)
	if err != nil {
		return 0, err
	}
	return MonthlyReturnAt(points, asOf, s.TotalPnL, s.TotalCost), nil
}

// ReturnSince is the return since the snapshot closest to since, 0 when no
// snapshot exists.
func (l *Ledger) ReturnSince(ctx context.Context, since time.Time) (float64, error) {
	s, err := l.Status()
	if err != nil {
		return 0, err
	}
	points, err := l.repo.Points(ctx)
	if err != nil {
		return 0, err
	}
	return ReturnSinceAt(points, since, s.TotalPnL, s.TotalCost), nil
}

// HistoricalMonthlySeries collapses the snapshot log to one return per month.
func (l *Ledger) HistoricalMonthlySeries(ctx context.Context) ([]MonthlyPoint, error) {
	points, err := l.repo.Points(ctx)
	if err != nil {
		return nil, err
	}
	return MonthlySeries(points), nil
}

func (l *Ledger) monthlyReturns(ctx context.Context) ([]float64, error) {
	series, err := l.HistoricalMonthlySeries(ctx)
	if err != nil {
		return nil, err
	}
	return Returns(series), nil
}

// Sharpe of the monthly series against riskFree (one rate, or one per month).
func (l *Ledger) Sharpe(ctx context.Context, riskFree []float64) (float64, error) {
	returns, err := l.monthlyReturns(ctx)
	if err != nil {
		return 0, err
	}
	return Sharpe(returns, riskFree)
}

// Sortino of the monthly series against riskFree.
func (l *Ledger) Sortino(ctx context.Context, riskFree []float64) (float64, error) {
	returns, err := l.monthlyReturns(ctx)
	if err != nil {
		return 0, err
	}
	return Sortino(returns, riskFree)
}

// Beta of the monthly series against the benchmark's monthly returns since since.
func (l *Ledger) Beta(ctx context.Context, bench Benchmark, since time.Time) (float64, error) {
	returns, err := l.monthlyReturns(ctx)
	if err != nil {
		return 0, err
	}
	return Beta(returns, bench.MonthlyReturnsSince(since))
}

// Alpha of the monthly series against the benchmark and riskFree.
func (l *Ledger) Alpha(ctx context.Context, bench Benchmark, riskFree []float64, since time.Time) (float64, error) {
	returns, err := l.monthlyReturns(ctx)
	if err != nil {
		return 0, err
	}
	benchmark := trimToCommon(returns, bench.MonthlyReturnsSince(since))
	return Alpha(returns, benchmark, riskFree)
}

// trimToCommon cuts b to its most recent len(a) months when it is longer,
// so a broadcast risk-free rate applies to both series alike.
func trimToCommon(a, b []float64) []float64 {
	if len(b) > len(a) {
		return b[len(b)-len(a):]
	}
	return b
}

// RelativePerformance is the ledger's return since since minus the
// benchmark's, both in %.
func (l *Ledger) RelativePerformance(ctx context.Context, bench Benchmark, since time.Time) (float64, error) {
	own, err := l.ReturnSince(ctx, since)
	if err != nil {
		return 0, err
	}
	index, ok := bench.ReturnSince(since)
	if !ok {
		return 0, fmt.Errorf("benchmark since %s: %w", since.Format("2006-01-02"), domain.ErrDataUnavailable)
	}
	return own - index, nil
}

// Metrics assembles every statistic. Statistics that cannot be computed,
// for lack of months or spread, are left nil.
func (l *Ledger) Metrics(ctx context.Context, asOf, since time.Time, bench Benchmark, riskFree []float64) (*Metrics, error) {
	s, err := l.Status()
	if err != nil {
		return nil, err
	}
	points, err := l.repo.Points(ctx)
	if err != nil {
		return nil, err
	}
	series := MonthlySeries(points)
	returns := Returns(series)

	m := &Metrics{
		AsOf:                 asOf,
		Since:                since,
		Months:               len(series),
		NetWorth:             s.NetWorth,
		TotalReturn:          s.TotalReturn,
		ReturnSinceLastMonth: MonthlyReturnAt(points, asOf, s.TotalPnL, s.TotalCost),
		ReturnSince:          ReturnSinceAt(points, since, s.TotalPnL, s.TotalCost),
		Volatility:           s.Volatility,
		TotalVolatility:      TotalVolatility(series),
	}

	if len(riskFree) > 0 {
		m.Sharpe = ratioOrNil(Sharpe(returns, riskFree))
		m.Sortino = ratioOrNil(Sortino(returns, riskFree))
	}
	if bench != nil {
		benchReturns := bench.MonthlyReturnsSince(since)
		m.Beta = ratioOrNil(Beta(returns, benchReturns))
		if len(riskFree) > 0 {
			trimmed := trimToCommon(returns, benchReturns)
			m.Alpha = ratioOrNil(Alpha(returns, trimmed, riskFree))
		}
		if index, ok := bench.ReturnSince(since); ok {
			rel := Ratio(m.ReturnSince - index)
			m.RelativePerformance = &rel
		}
	}
	return m, nil
}

