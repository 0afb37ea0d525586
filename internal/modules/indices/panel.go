// Package indices builds market-cap weighted composite indices and their
// empirical daily-change distributions at world, sector and region level.
package indices

import (
	"math"
	"sort"
	"time"

	"github.com/aristath/playground/internal/domain"
)

// Panel is a set of adjusted-close series aligned on the union of their
// trading days. Missing days are NaN.
type Panel struct {
	Dates   []time.Time
	Tickers []string
	Prices  map[string][]float64
}

// NewPanel aligns histories on the union of their dates.
func NewPanel(histories map[string]domain.SecurityHistory) *Panel {
	daySet := make(map[time.Time]struct{})
	tickers := make([]string, 0, len(histories))
	for ticker, h := range histories {
		tickers = append(tickers, ticker)
		for _, b := range h.Bars {
			daySet[b.Date] = struct{}{}
		}
	}
	sort.Strings(tickers)

	dates := make([]time.Time, 0, len(daySet))
	for d := range daySet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	pos := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		pos[d] = i
	}

	prices := make(map[string][]float64, len(tickers))
	for _, ticker := range tickers {
		col := make([]float64, len(dates))
		for i := range col {
			col[i] = math.NaN()
		}
		for _, b := range histories[ticker].Bars {
			col[pos[b.Date]] = b.AdjClose
		}
		prices[ticker] = col
	}

	return &Panel{Dates: dates, Tickers: tickers, Prices: prices}
}

// Len is the number of aligned days.
func (p *Panel) Len() int {
	return len(p.Dates)
}

// Subset returns a panel over the given tickers that shares the date axis
// and price columns with p.
func (p *Panel) Subset(tickers []string) *Panel {
	sub := &Panel{
		Dates:  p.Dates,
		Prices: make(map[string][]float64, len(tickers)),
	}
	for _, t := range tickers {
		if col, ok := p.Prices[t]; ok {
			sub.Tickers = append(sub.Tickers, t)
			sub.Prices[t] = col
		}
	}
	sort.Strings(sub.Tickers)
	return sub
}
