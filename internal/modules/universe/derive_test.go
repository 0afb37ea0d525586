package universe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/playground/internal/domain"
	testingpkg "github.com/aristath/playground/internal/testing"
	"github.com/aristath/playground/pkg/formulas"
)

func TestDerive_ActiveCompany(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	start := testingpkg.Day(2024, 1, 1)
	h := testingpkg.NewHistory("AAA", start, closes...)
	f := testingpkg.NewFundamentals("AAA", "Technology", "North America", 1000)

	startDate := start.AddDate(0, 0, 25)
	c, err := Derive(f, h, startDate)
	require.NoError(t, err)

	price := 125.0
	factor := price / 139.0
	assert.Equal(t, price, c.Price)
	assert.Equal(t, 1000.0, c.TradingVolume)
	assert.Equal(t, 1000*price, c.MarketCap)
	assert.InDelta(t, 1e9*factor, c.Revenue, 1e-3)
	assert.InDelta(t, 8e8*factor, c.Expenses, 1e-3)
	assert.InDelta(t, c.Revenue-c.Expenses, c.Profits, 1e-3)
	assert.InDelta(t, price*1000*factor, c.Earnings, 1e-9)
	assert.InDelta(t, c.Earnings/1000, c.EPS, 1e-9)
	assert.InDelta(t, price/c.EPS, c.PERatio, 1e-9)
	assert.True(t, c.Active)
	assert.Equal(t, 0, c.DaysSinceStartDate)

	window := closes[25-VolatilityWindowSize+1 : 26]
	assert.InDelta(t, formulas.PopStdDev(window)*math.Sqrt(20), c.VolatilityIndex, 1e-9)
}

func TestDerive_LateListing(t *testing.T) {
	start := testingpkg.Day(2024, 3, 1)
	h := testingpkg.NewHistory("NEW", start.AddDate(0, 0, 10), 50, 51, 52, 53, 54)
	f := testingpkg.NewFundamentals("NEW", "Energy", "Europe", 10)

	c, err := Derive(f, h, start)
	require.NoError(t, err)

	assert.False(t, c.Active)
	assert.Equal(t, 10, c.DaysSinceStartDate)
	assert.Equal(t, 50.0, c.Price)
	// not enough past: the first closes are used
	assert.InDelta(t, formulas.PopStdDev([]float64{50, 51, 52, 53, 54})*math.Sqrt(20), c.VolatilityIndex, 1e-9)
}

func TestDerive_RegionFromCountry(t *testing.T) {
	h := testingpkg.NewHistory("X", testingpkg.Day(2024, 1, 1), 10, 11)
	f := testingpkg.NewFundamentals("X", "Utilities", "", 5)
	f.Country = "Japan"

	c, err := Derive(f, h, testingpkg.Day(2024, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, RegionAsia, c.Region)
}

func TestDerive_Unavailable(t *testing.T) {
	f := testingpkg.NewFundamentals("X", "Utilities", "Asia", 5)
	_, err := Derive(f, domain.SecurityHistory{Ticker: "X"}, testingpkg.Day(2024, 1, 1))
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	f.SharesOutstanding = 0
	h := testingpkg.NewHistory("X", testingpkg.Day(2024, 1, 1), 10)
	_, err = Derive(f, h, testingpkg.Day(2024, 1, 1))
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestAssignPopularity(t *testing.T) {
	companies := []domain.CompanySnapshot{
		{Ticker: "A", TradingVolume: 100, SharesOutstanding: 1000, Active: true},
		{Ticker: "B", TradingVolume: 300, SharesOutstanding: 1000, Active: true},
		{Ticker: "C", TradingVolume: 900, SharesOutstanding: 1000, Active: false},
	}
	AssignPopularity(companies)

	assert.InDelta(t, 0.25, companies[0].Popularity, 1e-12)
	assert.InDelta(t, 0.75, companies[1].Popularity, 1e-12)
	assert.Equal(t, 0.0, companies[2].Popularity)
}

func TestFundamentalInfluence(t *testing.T) {
	assert.Equal(t, 0.0, FundamentalInfluence(domain.CompanySnapshot{Earnings: 10}))
	assert.Equal(t, 5.0, FundamentalInfluence(domain.CompanySnapshot{Earnings: 10, PERatio: 2}))
}
