package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/playground/internal/domain"
	"github.com/aristath/playground/internal/modules/indices"
	"github.com/aristath/playground/pkg/formulas"
)

// Benchmark is a return series the ledger is measured against. Composite
// indices satisfy it directly; HistoryBenchmark adapts a provider history.
type Benchmark interface {
	MonthlyReturnsSince(since time.Time) []float64
	ReturnSince(since time.Time) (float64, bool)
}

// HistoryBenchmark is a Benchmark over a security's close prices.
type HistoryBenchmark struct {
	history domain.SecurityHistory
}

// NewHistoryBenchmark wraps a history.
func NewHistoryBenchmark(h domain.SecurityHistory) *HistoryBenchmark {
	return &HistoryBenchmark{history: h}
}

func (b *HistoryBenchmark) since(since time.Time) ([]time.Time, []float64) {
	h := b.history.Since(since)
	return h.Dates(), h.Closes()
}

// MonthlyReturnsSince implements Benchmark.
func (b *HistoryBenchmark) MonthlyReturnsSince(since time.Time) []float64 {
	dates, closes := b.since(since)
	return formulas.MonthlyReturns(dates, closes)
}

// ReturnSince implements Benchmark.
func (b *HistoryBenchmark) ReturnSince(since time.Time) (float64, bool) {
	_, closes := b.since(since)
	if len(closes) == 0 || closes[0] == 0 {
		return 0, false
	}
	return (closes[len(closes)-1] - closes[0]) / closes[0] * 100, true
}

// RiskFreeRate is the mean monthly return of a risk-free proxy since the
// first day of since's month.
func RiskFreeRate(h domain.SecurityHistory, since time.Time) float64 {
	h = h.Since(domain.MonthStart(since))
	monthly := formulas.MonthlyReturns(h.Dates(), h.Closes())
	if len(monthly) == 0 {
		return 0
	}
	return formulas.Mean(monthly)
}

// IndexStore loads stored composite indices by key.
type IndexStore interface {
	Load(key string) (*indices.Index, error)
}

// MarketReference resolves the benchmark and risk-free inputs of the
// performance metrics. The benchmark is a provider symbol or, with an index
// store attached, a composite index key such as "world", "sector:Energy" or
// "region:Europe".
type MarketReference struct {
	history         domain.HistorySource
	indices         IndexStore
	benchmarkSymbol string
	riskFreeSymbol  string
}

// NewMarketReference creates a reference for the given symbols.
func NewMarketReference(history domain.HistorySource, benchmarkSymbol, riskFreeSymbol string) *MarketReference {
	return &MarketReference{
		history:         history,
		benchmarkSymbol: benchmarkSymbol,
		riskFreeSymbol:  riskFreeSymbol,
	}
}

// WithIndices attaches the store composite index keys are resolved from.
func (m *MarketReference) WithIndices(store IndexStore) *MarketReference {
	m.indices = store
	return m
}

// IsIndexKey reports whether benchmark names a composite index rather than
// a security.
func IsIndexKey(benchmark string) bool {
	return benchmark == string(indices.KindWorld) ||
		strings.HasPrefix(benchmark, string(indices.KindSector)+":") ||
		strings.HasPrefix(benchmark, string(indices.KindRegion)+":")
}

// Load fetches the benchmark and risk-free inputs since the given date. An
// empty benchmark uses the configured benchmark symbol.
func (m *MarketReference) Load(ctx context.Context, since time.Time, benchmark string) (Benchmark, []float64, error) {
	if benchmark == "" {
		benchmark = m.benchmarkSymbol
	}
	bench, err := m.benchmark(ctx, since, benchmark)
	if err != nil {
		return nil, nil, fmt.Errorf("benchmark %s: %w", benchmark, err)
	}
	rf, err := m.history.GetHistory(ctx, m.riskFreeSymbol, domain.MonthStart(since))
	if err != nil {
		return nil, nil, fmt.Errorf("risk-free %s: %w", m.riskFreeSymbol, err)
	}
	return bench, []float64{RiskFreeRate(rf, since)}, nil
}

func (m *MarketReference) benchmark(ctx context.Context, since time.Time, benchmark string) (Benchmark, error) {
	if !IsIndexKey(benchmark) {
		h, err := m.history.GetHistory(ctx, benchmark, since)
		if err != nil {
			return nil, err
		}
		return NewHistoryBenchmark(h), nil
	}
	if m.indices == nil {
		return nil, errors.New("no index store configured")
	}
	ix, err := m.indices.Load(benchmark)
	if err != nil {
		return nil, err
	}
	if !ix.Valid() {
		return nil, fmt.Errorf("index never positive: %w", domain.ErrDataUnavailable)
	}
	return ix, nil
}
