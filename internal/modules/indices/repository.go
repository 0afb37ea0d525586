package indices

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/playground/internal/database"
	"github.com/aristath/playground/internal/domain"
)

const dateLayout = "2006-01-02"

// Repository persists built indices in reference.db so other components can
// benchmark against them without rebuilding.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates an index repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "indices").Logger(),
	}
}

// Save replaces the stored levels and distribution of ix.
func (r *Repository) Save(ix *Index) error {
	key := ix.Key()
	sorted, err := json.Marshal(ix.Distribution.SortedChanges)
	if err != nil {
		return fmt.Errorf("failed to marshal distribution: %w", err)
	}
	cdf, err := json.Marshal(ix.Distribution.CDF)
	if err != nil {
		return fmt.Errorf("failed to marshal cdf: %w", err)
	}

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM index_levels WHERE index_key = ?`, key); err != nil {
			return fmt.Errorf("failed to clear index %s: %w", key, err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO index_levels (index_key, date, price_index, index_returns)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare level insert: %w", err)
		}
		defer stmt.Close()

		for i, d := range ix.Dates {
			var ret sql.NullFloat64
			if v := ix.IndexReturns[i]; !math.IsNaN(v) {
				ret = sql.NullFloat64{Float64: v, Valid: true}
			}
			if _, err := stmt.Exec(key, d.Format(dateLayout), ix.PriceIndex[i], ret); err != nil {
				return fmt.Errorf("failed to insert level of %s: %w", key, err)
			}
		}

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO index_distributions (index_key, kind, name, sorted_changes, cdf, built_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, key, string(ix.Kind), ix.Name, string(sorted), string(cdf), time.Now().Unix())
		if err != nil {
			return fmt.Errorf("failed to store distribution of %s: %w", key, err)
		}
		return nil
	})
}

// SaveMarket stores every index of m.
func (r *Repository) SaveMarket(m *Market) error {
	for _, ix := range m.All() {
		if err := r.Save(ix); err != nil {
			return err
		}
	}
	r.log.Info().Int("indices", len(m.All())).Msg("Stored indices")
	return nil
}

// Load reads the index stored under key. Missing keys give ErrDataUnavailable.
func (r *Repository) Load(key string) (*Index, error) {
	var kind, name, sorted, cdf string
	err := r.db.QueryRow(`
		SELECT kind, name, sorted_changes, cdf FROM index_distributions WHERE index_key = ?
	`, key).Scan(&kind, &name, &sorted, &cdf)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("index %s: %w", key, domain.ErrDataUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query index %s: %w", key, err)
	}

	ix := &Index{Kind: Kind(kind), Name: name, T0: -1}
	if err := json.Unmarshal([]byte(sorted), &ix.Distribution.SortedChanges); err != nil {
		return nil, fmt.Errorf("failed to decode distribution of %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(cdf), &ix.Distribution.CDF); err != nil {
		return nil, fmt.Errorf("failed to decode cdf of %s: %w", key, err)
	}

	rows, err := r.db.Query(`
		SELECT date, price_index, index_returns
		FROM index_levels
		WHERE index_key = ?
		ORDER BY date ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query levels of %s: %w", key, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			date  string
			level float64
			ret   sql.NullFloat64
		)
		if err := rows.Scan(&date, &level, &ret); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("bad date %q in %s: %w", date, key, err)
		}
		if ret.Valid && ix.T0 < 0 {
			ix.T0 = len(ix.Dates)
		}
		v := math.NaN()
		if ret.Valid {
			v = ret.Float64
		}
		ix.Dates = append(ix.Dates, d)
		ix.PriceIndex = append(ix.PriceIndex, level)
		ix.IndexReturns = append(ix.IndexReturns, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating levels of %s: %w", key, err)
	}
	return ix, nil
}
