package yahoo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/playground/internal/clientdata"
	"github.com/aristath/playground/internal/config"
	"github.com/aristath/playground/internal/database"
	"github.com/aristath/playground/internal/domain"
	testingpkg "github.com/aristath/playground/internal/testing"
)

type fakeBackend struct {
	mu       sync.Mutex
	bars     map[string][]domain.Bar
	currency map[string]string
	quotes   map[string]*finance.Quote
	equities map[string]*finance.Equity
	err      error
	calls    []time.Time
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		bars:     map[string][]domain.Bar{},
		currency: map[string]string{},
		quotes:   map[string]*finance.Quote{},
		equities: map[string]*finance.Equity{},
	}
}

func (f *fakeBackend) record() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, time.Now())
	return f.err
}

func (f *fakeBackend) Chart(symbol string, start, end time.Time) ([]domain.Bar, string, error) {
	if err := f.record(); err != nil {
		return nil, "", err
	}
	return f.bars[symbol], f.currency[symbol], nil
}

func (f *fakeBackend) Quote(symbol string) (*finance.Quote, error) {
	if err := f.record(); err != nil {
		return nil, err
	}
	return f.quotes[symbol], nil
}

func (f *fakeBackend) Equity(symbol string) (*finance.Equity, error) {
	if err := f.record(); err != nil {
		return nil, err
	}
	return f.equities[symbol], nil
}

type fixedRates map[string]float64

func (r fixedRates) GetRate(from, to string) (float64, error) {
	if from == to {
		return 1, nil
	}
	rate, ok := r[from+":"+to]
	if !ok {
		return 0, errors.New("no rate")
	}
	return rate, nil
}

func providerConfig(delay time.Duration) config.ProviderConfig {
	return config.ProviderConfig{
		RequestDelay: delay,
		BaseCurrency: "USD",
		CurrencyPool: config.DefaultCurrencyPool(),
	}
}

func TestGetHistory_NormalizesSubunitCurrency(t *testing.T) {
	api := newFakeBackend()
	day := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	api.bars["TEVA.TA"] = []domain.Bar{
		{Date: day, Open: 1000, High: 1100, Low: 900, Close: 1050, AdjClose: 1050, Volume: 10},
	}
	api.currency["TEVA.TA"] = "ILA"

	c := newClient(api, providerConfig(0), fixedRates{"ILS:USD": 0.27}, nil, zerolog.Nop())
	defer c.Close()

	h, err := c.GetHistory(context.Background(), "TEVA.TA", day.AddDate(0, 0, -10))
	require.NoError(t, err)
	require.Len(t, h.Bars, 1)
	assert.Equal(t, domain.CurrencyUSD, h.Currency)
	assert.InDelta(t, 1050*0.01*0.27, h.Bars[0].Close, 1e-9)
	assert.InDelta(t, 1050*0.01*0.27, h.Bars[0].AdjClose, 1e-9)
	assert.Equal(t, domain.Day(day), h.Bars[0].Date)
}

func TestGetHistory_EmptyIsUnavailable(t *testing.T) {
	api := newFakeBackend()
	c := newClient(api, providerConfig(0), nil, nil, zerolog.Nop())
	defer c.Close()

	_, err := c.GetHistory(context.Background(), "NOPE", time.Now().AddDate(-1, 0, 0))
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestGetFundamentals_QuoteTypeNone(t *testing.T) {
	api := newFakeBackend()
	api.equities["DEAD"] = &finance.Equity{Quote: finance.Quote{QuoteType: "NONE"}}
	c := newClient(api, providerConfig(0), nil, nil, zerolog.Nop())
	defer c.Close()

	_, err := c.GetFundamentals(context.Background(), "DEAD")
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	_, err = c.GetFundamentals(context.Background(), "MISSING")
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestGetFundamentals_CachesResult(t *testing.T) {
	api := newFakeBackend()
	api.equities["AAPL"] = &finance.Equity{
		Quote:             finance.Quote{QuoteType: "EQUITY", CurrencyID: "USD", ShortName: "Apple"},
		LongName:          "Apple Inc.",
		SharesOutstanding: 15_000_000_000,
	}
	db := testingpkg.NewTestDB(t, database.NameClientData)
	c := newClient(api, providerConfig(0), nil, clientdata.NewCache(db.Conn()), zerolog.Nop())
	defer c.Close()

	f, err := c.GetFundamentals(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", f.Name)
	assert.Equal(t, domain.QuoteTypeEquity, f.QuoteType)
	assert.Equal(t, 15e9, f.SharesOutstanding)

	_, err = c.GetFundamentals(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Len(t, api.calls, 1)
}

func TestGetCurrentPrice_StaleFallback(t *testing.T) {
	api := newFakeBackend()
	db := testingpkg.NewTestDB(t, database.NameClientData)
	repo := clientdata.NewCache(db.Conn())
	require.NoError(t, repo.PutTTL(clientdata.CurrentPrices, "MSFT", cachedPrice{Price: 410}, -time.Minute))

	api.err = errors.New("rate limited")
	c := newClient(api, providerConfig(0), nil, repo, zerolog.Nop())
	defer c.Close()

	price, err := c.GetCurrentPrice(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 410.0, price)
}

func TestGetCurrentPrice_ConvertsCurrency(t *testing.T) {
	api := newFakeBackend()
	api.quotes["VOD.L"] = &finance.Quote{RegularMarketPrice: 70, CurrencyID: "GBp"}
	c := newClient(api, providerConfig(0), fixedRates{"GBP:USD": 1.25}, nil, zerolog.Nop())
	defer c.Close()

	price, err := c.GetCurrentPrice(context.Background(), "VOD.L")
	require.NoError(t, err)
	assert.InDelta(t, 70*0.01*1.25, price, 1e-9)
}

func TestRequestQueue_EnforcesDelay(t *testing.T) {
	api := newFakeBackend()
	api.quotes["A"] = &finance.Quote{RegularMarketPrice: 1, CurrencyID: "USD"}
	delay := 40 * time.Millisecond
	c := newClient(api, providerConfig(delay), nil, nil, zerolog.Nop())
	defer c.Close()

	for i := 0; i < 3; i++ {
		_, err := c.GetCurrentPrice(context.Background(), "A")
		require.NoError(t, err)
	}

	require.Len(t, api.calls, 3)
	for i := 1; i < len(api.calls); i++ {
		assert.GreaterOrEqual(t, api.calls[i].Sub(api.calls[i-1]), delay-5*time.Millisecond)
	}
}

func TestRequestQueue_ClosedClient(t *testing.T) {
	c := newClient(newFakeBackend(), providerConfig(0), nil, nil, zerolog.Nop())
	c.Close()

	_, err := c.GetCurrentPrice(context.Background(), "A")
	assert.Error(t, err)
}
