package domain

import (
	"context"
	"time"
)

// SecurityReferenceProvider supplies currency-normalized history, prices and
// fundamentals for tickers. Implementations return ErrDataUnavailable when a
// ticker has no data in range.
type SecurityReferenceProvider interface {
	GetHistory(ctx context.Context, ticker string, since time.Time) (SecurityHistory, error)
	GetCurrentPrice(ctx context.Context, ticker string) (float64, error)
	GetFundamentals(ctx context.Context, ticker string) (Fundamentals, error)
}

// PriceSource is the narrow view the ledger needs to revalue holdings.
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, ticker string) (float64, error)
}

// HistorySource is the narrow view used for volatility and RSI inputs.
type HistorySource interface {
	GetHistory(ctx context.Context, ticker string, since time.Time) (SecurityHistory, error)
}

// CurrencyExchangeServiceInterface defines the contract for currency exchange operations
type CurrencyExchangeServiceInterface interface {
	// GetRate returns the exchange rate from one currency to another
	GetRate(fromCurrency, toCurrency string) (float64, error)
}
