package yahoo

import (
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/piquette/finance-go/quote"

	"github.com/aristath/playground/internal/domain"
)

// backend is the raw Yahoo surface the client needs. It exists so tests can
// run without the network.
type backend interface {
	Chart(symbol string, start, end time.Time) ([]domain.Bar, string, error)
	Quote(symbol string) (*finance.Quote, error)
	Equity(symbol string) (*finance.Equity, error)
}

// financeBackend talks to Yahoo through piquette/finance-go.
type financeBackend struct{}

func (financeBackend) Chart(symbol string, start, end time.Time) ([]domain.Bar, string, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)
	bars := make([]domain.Bar, 0)
	for iter.Next() {
		b := iter.Bar()
		bar := domain.Bar{
			Date:     time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:     b.Open.InexactFloat64(),
			High:     b.High.InexactFloat64(),
			Low:      b.Low.InexactFloat64(),
			Close:    b.Close.InexactFloat64(),
			AdjClose: b.AdjClose.InexactFloat64(),
			Volume:   int64(b.Volume),
		}
		// Yahoo pads halted sessions with empty bars
		if bar.Close <= 0 {
			continue
		}
		if bar.AdjClose <= 0 {
			bar.AdjClose = bar.Close
		}
		bars = append(bars, bar)
	}
	if err := iter.Err(); err != nil {
		return nil, "", fmt.Errorf("failed to get chart for %s: %w", symbol, err)
	}
	return bars, iter.Meta().Currency, nil
}

func (financeBackend) Quote(symbol string) (*finance.Quote, error) {
	return quote.Get(symbol)
}

func (financeBackend) Equity(symbol string) (*finance.Equity, error) {
	return equity.Get(symbol)
}
