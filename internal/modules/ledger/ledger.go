package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/playground/internal/domain"
	"github.com/aristath/playground/internal/events"
	"github.com/aristath/playground/pkg/formulas"
)

// volatilityLookback is the history used for per-position volatility.
const volatilityLookback = 365 * 24 * time.Hour

func newID() string {
	return uuid.NewString()
}

// Ledger is the single-account portfolio ledger. Every mutating operation
// commits its transaction and resulting state atomically before the
// in-memory state changes.
type Ledger struct {
	mu        sync.Mutex
	repo      *Repository
	fees      FeeModel
	prices    domain.PriceSource
	history   domain.HistorySource
	publisher events.Publisher
	log       zerolog.Logger
	state     *State
}

// New creates a ledger. prices and history are only needed by Revalue;
// publisher may be nil.
func New(
	repo *Repository,
	fees FeeModel,
	prices domain.PriceSource,
	history domain.HistorySource,
	publisher events.Publisher,
	log zerolog.Logger,
) *Ledger {
	return &Ledger{
		repo:      repo,
		fees:      fees,
		prices:    prices,
		history:   history,
		publisher: publisher,
		log:       log.With().Str("service", "ledger").Logger(),
	}
}

// Open restores the latest persisted state, or starts a new ledger with the
// given balance when nothing is stored yet.
func (l *Ledger) Open(ctx context.Context, initialBalance decimal.Decimal, inception time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.repo.LatestState(ctx)
	if err != nil {
		return err
	}
	if state != nil {
		l.state = state
		l.log.Info().
			Str("balance", state.Balance.StringFixed(2)).
			Int("positions", len(state.Holdings)).
			Msg("Ledger restored")
		return nil
	}

	state = NewState(initialBalance, inception.UTC())
	if err := l.repo.SaveState(ctx, state); err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}
	l.state = state
	l.log.Info().Str("balance", initialBalance.StringFixed(2)).Msg("Ledger initialized")
	return nil
}

func (l *Ledger) ready() error {
	if l.state == nil {
		return errors.New("ledger is not open")
	}
	return nil
}

func newTransaction(date time.Time, action Action, symbol string, price decimal.Decimal, qty int64) Transaction {
	return Transaction{
		ID:        newID(),
		Date:      date.UTC(),
		Action:    action,
		Symbol:    symbol,
		Price:     price,
		Quantity:  qty,
		Fee:       decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
}

// commit persists t with the state it produced and swaps it in.
func (l *Ledger) commit(ctx context.Context, t Transaction, next *State) error {
	if err := l.repo.Record(ctx, t, next); err != nil {
		return err
	}
	if next != nil {
		l.state = next
	}
	l.publishTransaction(ctx, t)
	return nil
}

// Buy purchases qty shares. A purchase the balance cannot cover is recorded
// as a FAILED transaction and leaves the ledger unchanged.
func (l *Ledger) Buy(ctx context.Context, date time.Time, symbol string, price decimal.Decimal, qty int64) (Transaction, error) {
	if qty <= 0 || !price.IsPositive() {
		return Transaction{}, fmt.Errorf("invalid buy order: %d %s @ %s", qty, symbol, price)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ready(); err != nil {
		return Transaction{}, err
	}

	t, next := applyBuy(l.state, l.fees, date, symbol, price, qty)
	if err := l.commit(ctx, t, next); err != nil {
		return Transaction{}, err
	}
	if next == nil {
		l.log.Warn().
			Str("symbol", symbol).
			Int64("quantity", qty).
			Str("balance", l.state.Balance.StringFixed(2)).
			Msg("Buy rejected")
		return t, nil
	}

	l.log.Info().
		Str("symbol", symbol).
		Int64("quantity", qty).
		Str("price", price.String()).
		Str("fee", t.Fee.String()).
		Msg("Bought")
	return t, nil
}

// Sell disposes of up to qty shares. Asking for more than is held sells the
// whole position; selling a symbol that is not held is recorded as FAILED.
func (l *Ledger) Sell(ctx context.Context, date time.Time, symbol string, price decimal.Decimal, qty int64) (Transaction, error) {
	if qty <= 0 || price.IsNegative() {
		return Transaction{}, fmt.Errorf("invalid sell order: %d %s @ %s", qty, symbol, price)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ready(); err != nil {
		return Transaction{}, err
	}

	t, next := applySell(l.state, l.fees, date, symbol, price, qty)
	if err := l.commit(ctx, t, next); err != nil {
		return Transaction{}, err
	}
	if next == nil {
		l.log.Warn().Str("symbol", symbol).Int64("quantity", qty).Msg("Sell rejected")
		return t, nil
	}

	l.log.Info().
		Str("symbol", symbol).
		Int64("quantity", t.Quantity).
		Str("price", price.String()).
		Str("fee", t.Fee.String()).
		Msg("Sold")
	return t, nil
}

// Deposit credits cash to the balance. Rows written by within commit or roll
// back together with the deposit.
func (l *Ledger) Deposit(ctx context.Context, date time.Time, amount decimal.Decimal, within ...TxFunc) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, fmt.Errorf("deposit must be positive, got %s", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ready(); err != nil {
		return Transaction{}, err
	}

	next := l.state.Clone()
	next.Balance = next.Balance.Add(amount)
	next.Date = date.UTC()
	next.refresh()

	t := newTransaction(date, ActionDeposit, CashSymbol, amount, 1)
	t.Status = StatusSuccess
	if err := l.repo.Record(ctx, t, next, within...); err != nil {
		return Transaction{}, err
	}
	l.state = next
	l.publish(ctx, &events.DepositProcessedData{
		TransactionID: t.ID,
		Date:          formatDate(t.Date),
		Amount:        amount.InexactFloat64(),
		Balance:       next.Balance.InexactFloat64(),
	})

	l.log.Info().Str("amount", amount.StringFixed(2)).Msg("Deposit credited")
	return t, nil
}

// Revalue marks every position to its current price and refreshes the
// aggregate and time-series figures as of asOf. The result is persisted by
// the next Snapshot.
func (l *Ledger) Revalue(ctx context.Context, asOf time.Time) error {
	if l.prices == nil {
		return errors.New("ledger has no price source")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ready(); err != nil {
		return err
	}

	next := l.state.Clone()
	symbols := next.Symbols()
	sort.Strings(symbols)

	for _, sym := range symbols {
		price, err := l.prices.GetCurrentPrice(ctx, sym)
		if err != nil {
			return fmt.Errorf("failed to price %s: %w", sym, err)
		}
		next.ClosingPrice[sym] = price

		if l.history == nil {
			continue
		}
		h, err := l.history.GetHistory(ctx, sym, asOf.Add(-volatilityLookback))
		if err != nil {
			l.log.Warn().Err(err).Str("symbol", sym).Msg("Keeping previous volatility")
			continue
		}
		next.Volatility[sym] = formulas.MonthlyVolatility(h.Dates(), h.Closes())
	}

	next.refresh()
	if err := l.updateSeriesStats(ctx, next, asOf); err != nil {
		return err
	}
	next.Date = asOf.UTC()
	l.state = next

	l.log.Debug().
		Float64("net_worth", next.NetWorth).
		Float64("total_return", next.TotalReturn).
		Msg("Ledger revalued")
	return nil
}

func (l *Ledger) updateSeriesStats(ctx context.Context, s *State, asOf time.Time) error {
	points, err := l.repo.Points(ctx)
	if err != nil {
		return err
	}
	s.ReturnSinceLastMonth = MonthlyReturnAt(points, asOf, s.TotalPnL, s.TotalCost)
	s.TotalVolatility = TotalVolatility(MonthlySeries(points))
	return nil
}

// Snapshot appends an immutable performance snapshot of the current state.
func (l *Ledger) Snapshot(ctx context.Context, date time.Time) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ready(); err != nil {
		return Snapshot{}, err
	}

	state := l.state.Clone()
	state.Date = date.UTC()
	if err := l.updateSeriesStats(ctx, state, date); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{ID: newID(), State: state, CreatedAt: time.Now().UTC()}
	if err := l.repo.AppendSnapshot(ctx, snap); err != nil {
		return Snapshot{}, err
	}
	l.state = state.Clone()

	l.publish(ctx, &events.SnapshotRecordedData{
		SnapshotID:           snap.ID,
		Date:                 formatDate(state.Date),
		NetWorth:             state.NetWorth,
		TotalReturn:          state.TotalReturn,
		ReturnSinceLastMonth: state.ReturnSinceLastMonth,
	})
	return snap, nil
}

// Status returns a copy of the current state.
func (l *Ledger) Status() (*State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ready(); err != nil {
		return nil, err
	}
	return l.state.Clone(), nil
}

// Volatility returns the per-position and total volatility of the current state.
func (l *Ledger) Volatility() (map[string]float64, float64, error) {
	s, err := l.Status()
	if err != nil {
		return nil, 0, err
	}
	return s.Volatility, s.TotalVolatility, nil
}

// Transactions lists recorded transactions.
func (l *Ledger) Transactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	return l.repo.Transactions(ctx, f)
}

// Snapshots lists recorded snapshots.
func (l *Ledger) Snapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	return l.repo.Snapshots(ctx, limit)
}

func (l *Ledger) publishTransaction(ctx context.Context, t Transaction) {
	l.publish(ctx, &events.TradeData{
		TransactionID: t.ID,
		Date:          formatDate(t.Date),
		Action:        string(t.Action),
		Symbol:        t.Symbol,
		Price:         t.Price.InexactFloat64(),
		Quantity:      t.Quantity,
		Fee:           t.Fee.InexactFloat64(),
		Status:        t.Status,
		Success:       t.Succeeded(),
	})
}

// publish runs after commit; a failure is logged and does not undo the write.
func (l *Ledger) publish(ctx context.Context, data events.EventData) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, "ledger", data); err != nil {
		l.log.Warn().Err(err).Str("event_type", string(data.EventType())).Msg("Failed to publish ledger event")
	}
}
