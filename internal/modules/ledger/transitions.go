package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// applyBuy prices a purchase against s. The returned state is nil when the
// purchase is rejected; s itself is never modified.
func applyBuy(s *State, fees FeeModel, date time.Time, symbol string, price decimal.Decimal, qty int64) (Transaction, *State) {
	t := newTransaction(date, ActionBuy, symbol, price, qty)
	fee := fees.BuyFee(qty)
	q := decimal.NewFromInt(qty)
	cost := price.Mul(q).Add(fee)

	if s.Balance.LessThan(cost) {
		t.Status = StatusFailed + ": Insufficient funds"
		return t, nil
	}

	next := s.Clone()
	next.Balance = next.Balance.Sub(cost)
	if held, ok := next.Holdings[symbol]; ok {
		oldQty := decimal.NewFromInt(held)
		next.AvgPrice[symbol] = next.AvgPrice[symbol].Mul(oldQty).Add(price.Mul(q)).Div(oldQty.Add(q))
	} else {
		next.AvgPrice[symbol] = price
		next.Return[symbol] = 0
		next.Volatility[symbol] = 0
	}
	next.Holdings[symbol] += qty
	next.ClosingPrice[symbol] = price.InexactFloat64()
	purchased := date.UTC()
	next.LastPurchaseDate = &purchased
	next.Date = purchased
	next.refresh()

	t.Fee = fee
	t.Status = StatusSuccess
	return t, next
}

// applySell prices a sale against s, clipping qty to the held quantity. The
// returned state is nil when nothing is held.
func applySell(s *State, fees FeeModel, date time.Time, symbol string, price decimal.Decimal, qty int64) (Transaction, *State) {
	held := s.Holdings[symbol]
	if held <= 0 {
		t := newTransaction(date, ActionSell, symbol, decimal.Zero, 0)
		t.Status = fmt.Sprintf("%s: Insufficient holdings of %s to sell (desired: %d).", StatusFailed, symbol, qty)
		return t, nil
	}

	sold := qty
	var status string
	if qty > held {
		sold = held
		status = fmt.Sprintf("%s, sold %d shares out of desired %d of %s, remaining: 0.", StatusSuccess, sold, qty, symbol)
	} else {
		status = fmt.Sprintf("%s, sold %d shares of %s, remaining: %d shares.", StatusSuccess, sold, symbol, held-sold)
	}

	fee := fees.SellFee(sold, price, s.AvgPrice[symbol])

	next := s.Clone()
	next.Balance = next.Balance.Add(price.Mul(decimal.NewFromInt(sold))).Sub(fee)
	if remaining := held - sold; remaining == 0 {
		next.purge(symbol)
	} else {
		next.Holdings[symbol] = remaining
		next.ClosingPrice[symbol] = price.InexactFloat64()
	}
	next.Date = date.UTC()
	next.refresh()

	t := newTransaction(date, ActionSell, symbol, price, sold)
	t.Fee = fee
	t.Status = status
	return t, next
}
