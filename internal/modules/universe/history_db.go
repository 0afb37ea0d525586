package universe

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/playground/internal/database"
	"github.com/aristath/playground/internal/domain"
)

const dateLayout = "2006-01-02"

// HistoryDB stores daily price histories and derived companies in reference.db.
type HistoryDB struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryDB creates a new reference data accessor
func NewHistoryDB(db *sql.DB, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

// SaveHistory replaces the stored history of a ticker.
func (h *HistoryDB) SaveHistory(hist domain.SecurityHistory) error {
	return database.WithTransaction(h.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM price_history WHERE ticker = ?`, hist.Ticker); err != nil {
			return fmt.Errorf("failed to clear price history: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO price_history (ticker, date, open, high, low, close, adj_close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare price insert: %w", err)
		}
		defer stmt.Close()

		for _, b := range hist.Bars {
			if _, err := stmt.Exec(hist.Ticker, b.Date.Format(dateLayout), b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume); err != nil {
				return fmt.Errorf("failed to insert price for %s: %w", hist.Ticker, err)
			}
		}

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO price_history_meta (ticker, currency, fetched_at)
			VALUES (?, ?, ?)
		`, hist.Ticker, string(hist.Currency), time.Now().Unix())
		if err != nil {
			return fmt.Errorf("failed to write history meta: %w", err)
		}

		h.log.Debug().Str("ticker", hist.Ticker).Int("bars", len(hist.Bars)).Msg("Stored price history")
		return nil
	})
}

// LoadHistory returns the stored history of a ticker, if any.
func (h *HistoryDB) LoadHistory(ticker string) (domain.SecurityHistory, bool, error) {
	var currency string
	err := h.db.QueryRow(`SELECT currency FROM price_history_meta WHERE ticker = ?`, ticker).Scan(&currency)
	if err == sql.ErrNoRows {
		return domain.SecurityHistory{}, false, nil
	}
	if err != nil {
		return domain.SecurityHistory{}, false, fmt.Errorf("failed to query history meta: %w", err)
	}

	rows, err := h.db.Query(`
		SELECT date, open, high, low, close, adj_close, volume
		FROM price_history
		WHERE ticker = ?
		ORDER BY date ASC
	`, ticker)
	if err != nil {
		return domain.SecurityHistory{}, false, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var (
			b    domain.Bar
			date string
		)
		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return domain.SecurityHistory{}, false, fmt.Errorf("failed to scan price: %w", err)
		}
		if b.Date, err = time.Parse(dateLayout, date); err != nil {
			return domain.SecurityHistory{}, false, fmt.Errorf("bad date %q for %s: %w", date, ticker, err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return domain.SecurityHistory{}, false, fmt.Errorf("error iterating price history: %w", err)
	}
	if len(bars) == 0 {
		return domain.SecurityHistory{}, false, nil
	}

	return domain.SecurityHistory{Ticker: ticker, Currency: domain.Currency(currency), Bars: bars}, true, nil
}

// SaveCompany stores a derived company keyed by ticker and start date.
func (h *HistoryDB) SaveCompany(c domain.CompanySnapshot) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal company: %w", err)
	}
	_, err = h.db.Exec(`
		INSERT OR REPLACE INTO companies (ticker, start_date, data, updated_at)
		VALUES (?, ?, ?, ?)
	`, c.Ticker, c.StartDate.Format(dateLayout), string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store company %s: %w", c.Ticker, err)
	}
	return nil
}

// LoadCompany returns the company derived for startDate, if stored.
func (h *HistoryDB) LoadCompany(ticker string, startDate time.Time) (domain.CompanySnapshot, bool, error) {
	var data string
	err := h.db.QueryRow(`
		SELECT data FROM companies WHERE ticker = ? AND start_date = ?
	`, ticker, domain.Day(startDate).Format(dateLayout)).Scan(&data)
	if err == sql.ErrNoRows {
		return domain.CompanySnapshot{}, false, nil
	}
	if err != nil {
		return domain.CompanySnapshot{}, false, fmt.Errorf("failed to query company: %w", err)
	}

	var c domain.CompanySnapshot
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return domain.CompanySnapshot{}, false, fmt.Errorf("failed to unmarshal company %s: %w", ticker, err)
	}
	return c, true, nil
}
