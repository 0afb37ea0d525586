package investor

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/playground/internal/modules/ledger"
)

// PortfolioStatus says which kinds of trades are currently sensible.
type PortfolioStatus string

const (
	StatusGood           PortfolioStatus = "GOOD"
	StatusGoodForBuying  PortfolioStatus = "GOOD_FOR_BUYING"
	StatusGoodForSelling PortfolioStatus = "GOOD_FOR_SELLING"
	StatusBad            PortfolioStatus = "BAD"
)

// PurchaseCondition sizes the largest order the balance affords at the mean
// cost basis of the held positions and accepts it when the buy fee stays
// below maxFeeRatio of its cost. An empty portfolio has no price to size
// against and never satisfies the condition.
func PurchaseCondition(s *ledger.State, fees ledger.FeeModel, maxFeeRatio float64) bool {
	if len(s.AvgPrice) == 0 {
		return false
	}

	total := decimal.Zero
	for _, avg := range s.AvgPrice {
		total = total.Add(avg)
	}
	mean := total.Div(decimal.NewFromInt(int64(len(s.AvgPrice))))
	if !mean.IsPositive() {
		return false
	}

	qty := s.Balance.Div(mean).IntPart()
	if qty <= 0 {
		return false
	}
	cost := mean.Mul(decimal.NewFromInt(qty))
	fee := fees.BuyFee(qty)
	return fee.Div(cost).LessThan(decimal.NewFromFloat(maxFeeRatio))
}

// SellCondition reports whether any held security is good to sell.
func SellCondition(s *ledger.State, conditions map[string]Condition) bool {
	for symbol := range s.Holdings {
		if c, ok := conditions[symbol]; ok && c.GoodToSell() {
			return true
		}
	}
	return false
}

// Evaluate combines the purchase and sell conditions.
func Evaluate(purchase, sell bool) PortfolioStatus {
	switch {
	case purchase && sell:
		return StatusGood
	case purchase:
		return StatusGoodForBuying
	case sell:
		return StatusGoodForSelling
	default:
		return StatusBad
	}
}
