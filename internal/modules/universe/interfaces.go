package universe

import (
	"context"
	"time"

	"github.com/aristath/playground/internal/domain"
)

// Provider is the subset of the security reference provider the builder uses.
type Provider interface {
	GetHistory(ctx context.Context, ticker string, since time.Time) (domain.SecurityHistory, error)
	GetFundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error)
}

// Store persists derived companies and their histories so a rebuild with the
// same start date does not hit the provider again.
type Store interface {
	LoadCompany(ticker string, startDate time.Time) (domain.CompanySnapshot, bool, error)
	SaveCompany(c domain.CompanySnapshot) error
	LoadHistory(ticker string) (domain.SecurityHistory, bool, error)
	SaveHistory(h domain.SecurityHistory) error
}
