package config

import (
	"testing"
	"time"

	"github.com/aristath/playground/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PLAYGROUND_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Market.PoolSize)
	assert.Equal(t, 0.67, cfg.Market.Gini)
	assert.Equal(t, 13700.0, cfg.Market.MeanIncome)
	assert.Equal(t, time.Date(1995, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Market.StartDate)
	assert.Equal(t, 5.0, cfg.Fees.FlatFee)
	assert.Equal(t, 0.01, cfg.Fees.PerShareFee)
	assert.Equal(t, 0.25, cfg.Fees.RevenueRateFee)
	assert.Equal(t, 300*time.Millisecond, cfg.Provider.RequestDelay)
	assert.Equal(t, "^GSPC", cfg.Ledger.BenchmarkSymbol)
	assert.Equal(t, "^IRX", cfg.Ledger.RiskFreeSymbol)
	assert.Equal(t, CurrencyConversion{To: "ILS", Rate: 0.01}, cfg.Provider.CurrencyPool["ILA"])
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PLAYGROUND_DATA_DIR", t.TempDir())
	t.Setenv("MARKET_TICKERS", "AAPL, MSFT,,NVDA")
	t.Setenv("MARKET_GINI", "0.4")
	t.Setenv("MARKET_START_DATE", "2010-06-01")
	t.Setenv("PROVIDER_DELAY_MS", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, cfg.Market.Tickers)
	assert.Equal(t, 0.4, cfg.Market.Gini)
	assert.Equal(t, 2010, cfg.Market.StartDate.Year())
	assert.Equal(t, 50*time.Millisecond, cfg.Provider.RequestDelay)
}

func TestLoad_InvalidStartDate(t *testing.T) {
	t.Setenv("PLAYGROUND_DATA_DIR", t.TempDir())
	t.Setenv("MARKET_START_DATE", "01/01/1995")

	_, err := Load()
	assert.Error(t, err)
}

func TestMarketConfig_Validate(t *testing.T) {
	valid := func() MarketConfig {
		return MarketConfig{
			PoolSize:           10,
			Gini:               0.67,
			MeanIncome:         13700,
			WealthDistribution: []float64{0.525, 0.344, 0.12, 0.011},
			WealthThresholds:   []float64{1e4, 1e5, 1e6},
			IncomeIntervalDays: 30,
			TradeFrequencies:   []int{7},
		}
	}

	require.NoError(t, valid().Validate())

	full := valid()
	full.Gini = 1
	require.NoError(t, full.Validate())

	tests := []struct {
		name   string
		mutate func(*MarketConfig)
	}{
		{"gini zero", func(m *MarketConfig) { m.Gini = 0 }},
		{"gini above one", func(m *MarketConfig) { m.Gini = 1.2 }},
		{"no income", func(m *MarketConfig) { m.MeanIncome = 0 }},
		{"empty pool", func(m *MarketConfig) { m.PoolSize = 0 }},
		{"bracket count", func(m *MarketConfig) { m.WealthThresholds = []float64{1e4} }},
		{"shares do not sum", func(m *MarketConfig) { m.WealthDistribution = []float64{0.5, 0.1, 0.1, 0.1} }},
		{"thresholds descending", func(m *MarketConfig) { m.WealthThresholds = []float64{1e5, 1e4, 1e6} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(&m)
			err := m.Validate()
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}
