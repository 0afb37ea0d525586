package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/playground/internal/database"
	"github.com/aristath/playground/internal/domain"
)

// envelopeVersion tags every JSON map column.
const envelopeVersion = 1

const (
	kindState    = "state"
	kindSnapshot = "snapshot"
)

const portfolioColumns = `uuid, kind, transaction_uuid, date, balance, holdings, avgPrice, closingPrice,
	"Return", totalReturn, returnSinceLastMonth, PnL, totalPnL, totalCost, netWorth,
	volatility, totalVolatility, lastPurchaseDate, inceptionDate, created_at`

type envelope struct {
	Version int             `json:"v"`
	Data    json.RawMessage `json:"data"`
}

func encodeMap(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(envelope{Version: envelopeVersion, Data: data})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func decodeMap(s string, out interface{}) error {
	var env envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return err
	}
	if env.Version != envelopeVersion {
		return fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	return json.Unmarshal(env.Data, out)
}

func formatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	Symbol string
	Action Action
	Limit  int
}

// Repository persists the ledger in ledger.db. Both logs are insert-only.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a ledger repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "ledger").Logger(),
	}
}

// TxFunc writes extra rows inside the SQL transaction of a ledger mutation.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// Record appends a transaction and, when state is not nil, the state it
// produced, in one SQL transaction. Every fn in within runs in the same
// transaction; an error from any of them rolls back the whole record.
func (r *Repository) Record(ctx context.Context, t Transaction, state *State, within ...TxFunc) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if err := insertTransaction(ctx, tx, t); err != nil {
			return err
		}
		if state != nil {
			if err := insertPortfolio(ctx, tx, newID(), kindState, t.ID, state); err != nil {
				return err
			}
		}
		for _, fn := range within {
			if err := fn(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveState appends a state row that is not tied to a transaction.
func (r *Repository) SaveState(ctx context.Context, state *State) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		return insertPortfolio(ctx, tx, newID(), kindState, "", state)
	})
}

// AppendSnapshot appends a performance snapshot. A snapshot dated before the
// latest stored snapshot is rejected with ErrOutOfOrderSnapshot.
func (r *Repository) AppendSnapshot(ctx context.Context, snap Snapshot) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		var latest sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT MAX(date) FROM portfolio WHERE kind = ?`, kindSnapshot,
		).Scan(&latest)
		if err != nil {
			return fmt.Errorf("failed to read latest snapshot: %w", err)
		}
		date := formatDate(snap.State.Date)
		if latest.Valid && date < latest.String {
			return fmt.Errorf("%w: %s < %s", domain.ErrOutOfOrderSnapshot, date, latest.String)
		}
		return insertPortfolio(ctx, tx, snap.ID, kindSnapshot, "", snap.State)
	})
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (uuid, date, action, symbol, price, quantity, fee, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, formatDate(t.Date), string(t.Action), t.Symbol, t.Price.InexactFloat64(), t.Quantity,
		t.Fee.InexactFloat64(), t.Status, t.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func insertPortfolio(ctx context.Context, tx *sql.Tx, id, kind, txID string, s *State) error {
	maps := []interface{}{s.Holdings, s.AvgPrice, s.ClosingPrice, s.Return, s.PnL, s.Volatility}
	encoded := make([]string, len(maps))
	for i, m := range maps {
		enc, err := encodeMap(m)
		if err != nil {
			return fmt.Errorf("failed to encode state: %w", err)
		}
		encoded[i] = enc
	}

	var txRef, lastPurchase sql.NullString
	if txID != "" {
		txRef = sql.NullString{String: txID, Valid: true}
	}
	if s.LastPurchaseDate != nil {
		lastPurchase = sql.NullString{String: formatDate(*s.LastPurchaseDate), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `INSERT INTO portfolio (`+portfolioColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, kind, txRef, formatDate(s.Date), s.Balance.InexactFloat64(),
		encoded[0], encoded[1], encoded[2], encoded[3],
		s.TotalReturn, s.ReturnSinceLastMonth, encoded[4], s.TotalPnL, s.TotalCost, s.NetWorth,
		encoded[5], s.TotalVolatility, lastPurchase, formatDate(s.InceptionDate), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s row: %w", kind, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPortfolio(row rowScanner) (*Snapshot, error) {
	var (
		id, kind, date, inception             string
		txRef, lastPurchase                   sql.NullString
		balance                               float64
		holdings, avg, closing, ret, pnl, vol string
		totalReturn, sinceLastMonth, totalPnL float64
		totalCost, netWorth, totalVolatility  float64
		createdAt                             int64
	)
	err := row.Scan(&id, &kind, &txRef, &date, &balance, &holdings, &avg, &closing, &ret,
		&totalReturn, &sinceLastMonth, &pnl, &totalPnL, &totalCost, &netWorth, &vol,
		&totalVolatility, &lastPurchase, &inception, &createdAt)
	if err != nil {
		return nil, err
	}

	s := NewState(decimal.NewFromFloat(balance), time.Time{})
	s.TotalReturn = totalReturn
	s.ReturnSinceLastMonth = sinceLastMonth
	s.TotalPnL = totalPnL
	s.TotalCost = totalCost
	s.NetWorth = netWorth
	s.TotalVolatility = totalVolatility

	if s.Date, err = parseDate(date); err != nil {
		return nil, fmt.Errorf("bad date %q: %w", date, err)
	}
	if s.InceptionDate, err = parseDate(inception); err != nil {
		return nil, fmt.Errorf("bad inception date %q: %w", inception, err)
	}
	if lastPurchase.Valid {
		d, err := parseDate(lastPurchase.String)
		if err != nil {
			return nil, fmt.Errorf("bad last purchase date %q: %w", lastPurchase.String, err)
		}
		s.LastPurchaseDate = &d
	}

	columns := []struct {
		raw string
		out interface{}
	}{
		{holdings, &s.Holdings},
		{avg, &s.AvgPrice},
		{closing, &s.ClosingPrice},
		{ret, &s.Return},
		{pnl, &s.PnL},
		{vol, &s.Volatility},
	}
	for _, c := range columns {
		if err := decodeMap(c.raw, c.out); err != nil {
			return nil, fmt.Errorf("failed to decode portfolio row %s: %w", id, err)
		}
	}

	return &Snapshot{ID: id, State: s, CreatedAt: time.Unix(createdAt, 0).UTC()}, nil
}

// LatestState returns the most recent portfolio row of either kind, or nil
// when the ledger is empty.
func (r *Repository) LatestState(ctx context.Context) (*State, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+portfolioColumns+` FROM portfolio ORDER BY id DESC LIMIT 1`)
	snap, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger state: %w", err)
	}
	return snap.State, nil
}

// Snapshots lists performance snapshots, newest first.
func (r *Repository) Snapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+portfolioColumns+` FROM portfolio
		WHERE kind = ? ORDER BY date DESC, id DESC LIMIT ?`, kindSnapshot, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]Snapshot, 0)
	for rows.Next() {
		snap, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

// Points returns the snapshot time series, oldest first.
func (r *Repository) Points(ctx context.Context) ([]Point, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date, totalPnL, totalCost, returnSinceLastMonth
		FROM portfolio WHERE kind = ? ORDER BY date ASC, id ASC`, kindSnapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot series: %w", err)
	}
	defer rows.Close()

	out := make([]Point, 0)
	for rows.Next() {
		var p Point
		var date string
		if err := rows.Scan(&date, &p.TotalPnL, &p.TotalCost, &p.ReturnSinceLastMonth); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if p.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("bad snapshot date %q: %w", date, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Transactions lists transactions, newest first.
func (r *Repository) Transactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	query := `SELECT uuid, date, action, symbol, price, quantity, fee, status, created_at
	          FROM transactions`
	var where []string
	var args []interface{}

	if f.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, f.Symbol)
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(f.Action))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		var t Transaction
		var date, action string
		var price, fee float64
		var createdAt int64
		if err := rows.Scan(&t.ID, &date, &action, &t.Symbol, &price, &t.Quantity, &fee, &t.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if t.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("bad transaction date %q: %w", date, err)
		}
		t.Action = Action(action)
		t.Price = decimal.NewFromFloat(price)
		t.Fee = decimal.NewFromFloat(fee)
		t.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}
