package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/playground/internal/config"
)

// FeeModel prices ledger operations. Buys pay the larger of a flat fee and a
// per-share fee; sells pay a share of the realized gain, never of a loss.
type FeeModel struct {
	Flat        decimal.Decimal
	PerShare    decimal.Decimal
	RevenueRate decimal.Decimal
}

// NewFeeModel converts the configured fees.
func NewFeeModel(cfg config.FeeConfig) FeeModel {
	return FeeModel{
		Flat:        decimal.NewFromFloat(cfg.FlatFee),
		PerShare:    decimal.NewFromFloat(cfg.PerShareFee),
		RevenueRate: decimal.NewFromFloat(cfg.RevenueRateFee),
	}
}

// BuyFee is max(flat, qty*perShare).
func (f FeeModel) BuyFee(qty int64) decimal.Decimal {
	return decimal.Max(f.Flat, decimal.NewFromInt(qty).Mul(f.PerShare))
}

// SellFee is max(0, qty*(price-avg)*revenueRate).
func (f FeeModel) SellFee(qty int64, price, avg decimal.Decimal) decimal.Decimal {
	fee := decimal.NewFromInt(qty).Mul(price.Sub(avg)).Mul(f.RevenueRate)
	return decimal.Max(decimal.Zero, fee)
}
