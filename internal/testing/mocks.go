package testing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/playground/internal/domain"
)

// MockProvider is an in-memory domain.SecurityReferenceProvider.
type MockProvider struct {
	mu           sync.RWMutex
	histories    map[string]domain.SecurityHistory
	fundamentals map[string]domain.Fundamentals
	prices       map[string]float64
	err          error
	calls        int
}

// NewMockProvider creates an empty provider; unknown tickers are unavailable.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		histories:    make(map[string]domain.SecurityHistory),
		fundamentals: make(map[string]domain.Fundamentals),
		prices:       make(map[string]float64),
	}
}

// AddSecurity registers history and fundamentals for a ticker. The current
// price defaults to the last close.
func (m *MockProvider) AddSecurity(f domain.Fundamentals, h domain.SecurityHistory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fundamentals[f.Ticker] = f
	m.histories[f.Ticker] = h
	if n := len(h.Bars); n > 0 {
		m.prices[f.Ticker] = h.Bars[n-1].Close
	}
}

// SetHistory registers a history only, e.g. for an index or rate symbol.
func (m *MockProvider) SetHistory(h domain.SecurityHistory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories[h.Ticker] = h
	if n := len(h.Bars); n > 0 {
		m.prices[h.Ticker] = h.Bars[n-1].Close
	}
}

// SetPrice overrides the current price of a ticker.
func (m *MockProvider) SetPrice(ticker string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[ticker] = price
}

// SetError makes every call fail with err.
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many provider calls were made.
func (m *MockProvider) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// GetHistory implements domain.SecurityReferenceProvider
func (m *MockProvider) GetHistory(ctx context.Context, ticker string, since time.Time) (domain.SecurityHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return domain.SecurityHistory{}, m.err
	}
	h, ok := m.histories[ticker]
	if !ok {
		return domain.SecurityHistory{}, fmt.Errorf("%s: %w", ticker, domain.ErrDataUnavailable)
	}
	h = h.Since(since)
	if h.Empty() {
		return domain.SecurityHistory{}, fmt.Errorf("%s since %s: %w", ticker, since.Format("2006-01-02"), domain.ErrDataUnavailable)
	}
	return h, nil
}

// GetCurrentPrice implements domain.SecurityReferenceProvider
func (m *MockProvider) GetCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	p, ok := m.prices[ticker]
	if !ok {
		return 0, fmt.Errorf("%s: %w", ticker, domain.ErrDataUnavailable)
	}
	return p, nil
}

// GetFundamentals implements domain.SecurityReferenceProvider
func (m *MockProvider) GetFundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return domain.Fundamentals{}, m.err
	}
	f, ok := m.fundamentals[ticker]
	if !ok {
		return domain.Fundamentals{}, fmt.Errorf("%s: %w", ticker, domain.ErrDataUnavailable)
	}
	return f, nil
}
