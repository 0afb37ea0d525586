package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewSecurityHistory_SortsAndDeduplicates(t *testing.T) {
	h := NewSecurityHistory("AAPL", CurrencyUSD, []Bar{
		{Date: day(2024, 1, 3), Close: 3},
		{Date: day(2024, 1, 1), Close: 1},
		{Date: day(2024, 1, 3).Add(5 * time.Hour), Close: 33},
		{Date: day(2024, 1, 2), Close: 2},
	})

	assert.Equal(t, []float64{1, 2, 33}, h.Closes())
	assert.False(t, h.Empty())
}

func TestSecurityHistory_Lookups(t *testing.T) {
	h := NewSecurityHistory("X", CurrencyUSD, []Bar{
		{Date: day(2024, 1, 2)},
		{Date: day(2024, 1, 5)},
		{Date: day(2024, 1, 9)},
	})

	tests := []struct {
		name    string
		day     time.Time
		index   int
		nearest int
	}{
		{"before first", day(2023, 12, 1), -1, 0},
		{"exact", day(2024, 1, 5), 1, 1},
		{"closer to earlier", day(2024, 1, 6), -1, 1},
		{"closer to later", day(2024, 1, 8), -1, 2},
		{"tie goes earlier", day(2024, 1, 7), -1, 1},
		{"after last", day(2024, 2, 1), -1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.index, h.IndexOn(tt.day))
			assert.Equal(t, tt.nearest, h.NearestIndex(tt.day))
		})
	}

	assert.Len(t, h.Since(day(2024, 1, 5)).Bars, 2)
	assert.Equal(t, -1, SecurityHistory{}.NearestIndex(day(2024, 1, 1)))
}

func TestCalendarHelpers(t *testing.T) {
	ts := time.Date(2024, 3, 17, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, day(2024, 3, 17), Day(ts))
	assert.Equal(t, day(2024, 3, 1), MonthStart(ts))
	assert.True(t, SameMonth(ts, day(2024, 3, 1)))
	assert.False(t, SameMonth(ts, day(2023, 3, 17)))
}

func TestCompanySnapshot_ExtensionPointsAreNoOps(t *testing.T) {
	c := CompanySnapshot{Ticker: "X", Price: 10, MarketCap: 100}
	c.UpdatePrice(5, 1)
	c.UpdateMetrics()
	assert.Equal(t, 10.0, c.Price)
	assert.Equal(t, 100.0, c.MarketCap)
}
