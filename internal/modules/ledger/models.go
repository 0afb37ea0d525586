// Package ledger implements the append-only portfolio ledger: cash, positions,
// cost basis, fees and the performance statistics derived from snapshots.
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is how ledger dates are stored.
const DateLayout = "2006-01-02 15:04:05"

// Action is the kind of a ledger transaction.
type Action string

const (
	ActionBuy     Action = "BUY"
	ActionSell    Action = "SELL"
	ActionDeposit Action = "DEPOSIT"
)

// Status prefixes.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// CashSymbol is the symbol recorded on deposit transactions.
const CashSymbol = "CASH"

// Transaction is an immutable ledger record.
type Transaction struct {
	ID        string          `json:"id"`
	Date      time.Time       `json:"date"`
	Action    Action          `json:"action"`
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Fee       decimal.Decimal `json:"fee"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// Succeeded reports whether the transaction changed the ledger.
func (t Transaction) Succeeded() bool {
	return strings.HasPrefix(t.Status, StatusSuccess)
}

// State is the full ledger state. Holdings and AvgPrice always share the
// same key set.
type State struct {
	Balance              decimal.Decimal            `json:"balance"`
	Holdings             map[string]int64           `json:"holdings"`
	AvgPrice             map[string]decimal.Decimal `json:"avg_price"`
	ClosingPrice         map[string]float64         `json:"closing_price"`
	Return               map[string]float64         `json:"return"`
	TotalReturn          float64                    `json:"total_return"`
	ReturnSinceLastMonth float64                    `json:"return_since_last_month"`
	PnL                  map[string]float64         `json:"pnl"`
	TotalPnL             float64                    `json:"total_pnl"`
	TotalCost            float64                    `json:"total_cost"`
	NetWorth             float64                    `json:"net_worth"`
	Volatility           map[string]float64         `json:"volatility"`
	TotalVolatility      float64                    `json:"total_volatility"`
	LastPurchaseDate     *time.Time                 `json:"last_purchase_date,omitempty"`
	InceptionDate        time.Time                  `json:"inception_date"`
	Date                 time.Time                  `json:"date"`
}

// NewState returns an empty ledger holding only cash.
func NewState(balance decimal.Decimal, inception time.Time) *State {
	return &State{
		Balance:       balance,
		Holdings:      map[string]int64{},
		AvgPrice:      map[string]decimal.Decimal{},
		ClosingPrice:  map[string]float64{},
		Return:        map[string]float64{},
		PnL:           map[string]float64{},
		Volatility:    map[string]float64{},
		InceptionDate: inception,
		Date:          inception,
		NetWorth:      balance.InexactFloat64(),
	}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.Holdings = make(map[string]int64, len(s.Holdings))
	for k, v := range s.Holdings {
		c.Holdings[k] = v
	}
	c.AvgPrice = make(map[string]decimal.Decimal, len(s.AvgPrice))
	for k, v := range s.AvgPrice {
		c.AvgPrice[k] = v
	}
	c.ClosingPrice = cloneFloats(s.ClosingPrice)
	c.Return = cloneFloats(s.Return)
	c.PnL = cloneFloats(s.PnL)
	c.Volatility = cloneFloats(s.Volatility)
	if s.LastPurchaseDate != nil {
		d := *s.LastPurchaseDate
		c.LastPurchaseDate = &d
	}
	return &c
}

// Symbols returns the held symbols.
func (s *State) Symbols() []string {
	out := make([]string, 0, len(s.Holdings))
	for sym := range s.Holdings {
		out = append(out, sym)
	}
	return out
}

// purge removes every per-symbol entry for sym.
func (s *State) purge(sym string) {
	delete(s.Holdings, sym)
	delete(s.AvgPrice, sym)
	delete(s.ClosingPrice, sym)
	delete(s.Return, sym)
	delete(s.PnL, sym)
	delete(s.Volatility, sym)
}

// refresh recomputes per-position and aggregate figures from the closing
// prices already on the state. Positions without a closing price are valued
// at cost.
func (s *State) refresh() {
	s.TotalPnL, s.TotalCost = 0, 0
	netWorth := s.Balance.InexactFloat64()

	for sym, qty := range s.Holdings {
		avg := s.AvgPrice[sym].InexactFloat64()
		price, ok := s.ClosingPrice[sym]
		if !ok {
			price = avg
			s.ClosingPrice[sym] = price
		}
		q := float64(qty)
		if avg > 0 {
			s.Return[sym] = (price - avg) / avg * 100
		} else {
			s.Return[sym] = 0
		}
		s.PnL[sym] = (price - avg) * q
		s.TotalPnL += s.PnL[sym]
		s.TotalCost += avg * q
		netWorth += q * price
	}

	s.NetWorth = netWorth
	s.TotalReturn = 0
	if s.TotalCost > 0 {
		s.TotalReturn = s.TotalPnL / s.TotalCost * 100
	}
}

// Snapshot is a persisted performance snapshot.
type Snapshot struct {
	ID        string    `json:"id"`
	State     *State    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Point is the slice of a snapshot the time-series statistics read.
type Point struct {
	Date                 time.Time
	TotalPnL             float64
	TotalCost            float64
	ReturnSinceLastMonth float64
}

func cloneFloats(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
