package investor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/playground/internal/database"
	"github.com/aristath/playground/internal/modules/ledger"
)

// conditionsVersion tags the stored conditions document.
const conditionsVersion = 1

type conditionsDocument struct {
	Version    int                  `json:"v"`
	Conditions map[string]Condition `json:"data"`
}

// Repository keeps the investor bookkeeping row in ledger.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates an investor repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "investor").Logger(),
	}
}

// LastDepositMonth returns the month ("2006-01") of the latest DEPOSIT
// transaction, or "" when there is none. The ledger log itself is the
// source of truth so a deposit is never credited twice.
func (r *Repository) LastDepositMonth(ctx context.Context) (string, error) {
	var date sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(date) FROM transactions WHERE action = 'DEPOSIT'`,
	).Scan(&date)
	if err != nil {
		return "", fmt.Errorf("failed to read last deposit: %w", err)
	}
	if !date.Valid || len(date.String) < 7 {
		return "", nil
	}
	return date.String[:7], nil
}

// LoadConditions returns the stored conditions, empty when none are stored.
func (r *Repository) LoadConditions(ctx context.Context) (map[string]Condition, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT conditions FROM investor_state WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]Condition{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load investor state: %w", err)
	}

	var doc conditionsDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode conditions: %w", err)
	}
	if doc.Version != conditionsVersion {
		return nil, fmt.Errorf("unsupported conditions version %d", doc.Version)
	}
	if doc.Conditions == nil {
		doc.Conditions = map[string]Condition{}
	}
	return doc.Conditions, nil
}

// SaveState upserts the bookkeeping row.
func (r *Repository) SaveState(ctx context.Context, monthlyDeposit float64, lastDepositMonth string, conditions map[string]Condition) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		return r.saveState(ctx, tx, monthlyDeposit, lastDepositMonth, conditions)
	})
}

// StateWriter returns a ledger.TxFunc that upserts the bookkeeping row in
// the caller's transaction.
func (r *Repository) StateWriter(monthlyDeposit float64, lastDepositMonth string, conditions map[string]Condition) ledger.TxFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		return r.saveState(ctx, tx, monthlyDeposit, lastDepositMonth, conditions)
	}
}

func (r *Repository) saveState(ctx context.Context, tx *sql.Tx, monthlyDeposit float64, lastDepositMonth string, conditions map[string]Condition) error {
	raw, err := json.Marshal(conditionsDocument{Version: conditionsVersion, Conditions: conditions})
	if err != nil {
		return fmt.Errorf("failed to encode conditions: %w", err)
	}

	var month sql.NullString
	if lastDepositMonth != "" {
		month = sql.NullString{String: lastDepositMonth, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO investor_state (id, monthly_deposit, last_deposit_month, conditions, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			monthly_deposit = excluded.monthly_deposit,
			last_deposit_month = excluded.last_deposit_month,
			conditions = excluded.conditions,
			updated_at = excluded.updated_at
	`, monthlyDeposit, month, string(raw), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save investor state: %w", err)
	}
	return nil
}
