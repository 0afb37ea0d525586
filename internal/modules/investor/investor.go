package investor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/playground/internal/config"
	"github.com/aristath/playground/internal/domain"
	"github.com/aristath/playground/internal/modules/ledger"
)

// conditionLookback is the history fetched for indicators; it covers the
// long trend window in trading days.
const conditionLookback = 365 * 24 * time.Hour

// Investor drives the real ledger: it credits the monthly deposit, tracks
// market conditions of watched securities and evaluates the portfolio.
type Investor struct {
	ledger   *ledger.Ledger
	repo     *Repository
	provider domain.SecurityReferenceProvider
	fees     ledger.FeeModel
	cfg      config.LedgerConfig
	log      zerolog.Logger
}

// New creates an investor.
func New(
	l *ledger.Ledger,
	repo *Repository,
	provider domain.SecurityReferenceProvider,
	fees ledger.FeeModel,
	cfg config.LedgerConfig,
	log zerolog.Logger,
) *Investor {
	return &Investor{
		ledger:   l,
		repo:     repo,
		provider: provider,
		fees:     fees,
		cfg:      cfg,
		log:      log.With().Str("service", "investor").Logger(),
	}
}

func (inv *Investor) windows() Windows {
	return Windows{RSI: inv.cfg.RSIWindow, Short: inv.cfg.ShortTrendWindow, Long: inv.cfg.LongTrendWindow}
}

// AllocateMonthlyDeposit credits the configured deposit once per calendar
// month. It reports whether a deposit was made.
func (inv *Investor) AllocateMonthlyDeposit(ctx context.Context, now time.Time) (bool, error) {
	if inv.cfg.MonthlyDeposit <= 0 {
		return false, nil
	}

	month := now.UTC().Format("2006-01")
	last, err := inv.repo.LastDepositMonth(ctx)
	if err != nil {
		return false, err
	}
	if last == month {
		return false, nil
	}

	conditions, err := inv.repo.LoadConditions(ctx)
	if err != nil {
		return false, err
	}
	state := inv.repo.StateWriter(inv.cfg.MonthlyDeposit, month, conditions)
	if _, err := inv.ledger.Deposit(ctx, now, decimal.NewFromFloat(inv.cfg.MonthlyDeposit), state); err != nil {
		return false, fmt.Errorf("failed to credit monthly deposit: %w", err)
	}

	inv.log.Info().Str("month", month).Float64("amount", inv.cfg.MonthlyDeposit).Msg("Monthly deposit allocated")
	return true, nil
}

// DetermineMarketCondition evaluates one security as of asOf. Securities the
// provider does not know are returned as invalid rather than as an error.
func (inv *Investor) DetermineMarketCondition(ctx context.Context, symbol string, asOf time.Time) (Condition, error) {
	if _, err := inv.provider.GetFundamentals(ctx, symbol); err != nil {
		if errors.Is(err, domain.ErrDataUnavailable) {
			return Condition{Symbol: symbol, Trend: TrendNeutral}, nil
		}
		return Condition{}, err
	}

	h, err := inv.provider.GetHistory(ctx, symbol, asOf.Add(-conditionLookback))
	if err != nil {
		if errors.Is(err, domain.ErrDataUnavailable) {
			return Condition{Symbol: symbol, Trend: TrendNeutral}, nil
		}
		return Condition{}, err
	}

	// Only bars up to asOf count.
	bars := h.Bars
	cut := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(asOf) })
	closes := make([]float64, cut)
	for i := 0; i < cut; i++ {
		closes[i] = bars[i].Close
	}
	return MarketCondition(symbol, closes, inv.windows()), nil
}

// UpdateConditions re-evaluates held and previously watched securities plus
// extra, and persists the result.
func (inv *Investor) UpdateConditions(ctx context.Context, asOf time.Time, extra ...string) (map[string]Condition, error) {
	stored, err := inv.repo.LoadConditions(ctx)
	if err != nil {
		return nil, err
	}
	state, err := inv.ledger.Status()
	if err != nil {
		return nil, err
	}

	symbols := map[string]struct{}{}
	for s := range stored {
		symbols[s] = struct{}{}
	}
	for s := range state.Holdings {
		symbols[s] = struct{}{}
	}
	for _, s := range extra {
		symbols[s] = struct{}{}
	}

	names := make([]string, 0, len(symbols))
	for s := range symbols {
		names = append(names, s)
	}
	sort.Strings(names)

	out := make(map[string]Condition, len(names))
	for _, s := range names {
		c, err := inv.DetermineMarketCondition(ctx, s, asOf)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate %s: %w", s, err)
		}
		out[s] = c
		inv.log.Debug().Str("symbol", s).Str("trend", string(c.Trend)).Bool("valid", c.Valid).Msg("Market condition")
	}

	last, err := inv.repo.LastDepositMonth(ctx)
	if err != nil {
		return nil, err
	}
	if err := inv.repo.SaveState(ctx, inv.cfg.MonthlyDeposit, last, out); err != nil {
		return nil, err
	}
	return out, nil
}

// EvaluatePortfolioStatus combines the purchase condition with the sell
// condition over the stored market conditions.
func (inv *Investor) EvaluatePortfolioStatus(ctx context.Context) (PortfolioStatus, error) {
	state, err := inv.ledger.Status()
	if err != nil {
		return StatusBad, err
	}
	conditions, err := inv.repo.LoadConditions(ctx)
	if err != nil {
		return StatusBad, err
	}

	purchase := PurchaseCondition(state, inv.fees, inv.cfg.MaxFeeRatio)
	sell := SellCondition(state, conditions)
	return Evaluate(purchase, sell), nil
}
