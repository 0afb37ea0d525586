package domain

import "errors"

var (
	// ErrDataUnavailable means the provider has no history or fundamentals for
	// a ticker. Callers skip the ticker rather than abort.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInsufficientFunds and ErrInsufficientHoldings describe rejected ledger
	// operations. They are recorded as FAILED transactions, not returned.
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrDegenerateDistribution means a series has no spread (max == min or std == 0).
	ErrDegenerateDistribution = errors.New("degenerate distribution")

	// ErrConfiguration means model parameters are unsatisfiable. Fatal at startup.
	ErrConfiguration = errors.New("invalid configuration")

	ErrOutOfOrderSnapshot = errors.New("snapshot date precedes latest snapshot")
	ErrSeriesLength       = errors.New("series length mismatch")
)
