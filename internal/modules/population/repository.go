package population

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/playground/internal/database"
	"github.com/aristath/playground/internal/domain"
)

// encodingVersion prefixes every msgpack blob.
const encodingVersion byte = 1

// Run describes one simulation run.
type Run struct {
	ID         string
	Seed       uint64
	StartDate  time.Time
	PoolSize   int
	Gini       float64
	MeanIncome float64
	Days       int
	CreatedAt  time.Time
}

// Repository stores runs, agents and daily trends in agents.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates an agents repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "agents").Logger(),
	}
}

func encode(v interface{}) ([]byte, error) {
	body, err := msgpack.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append([]byte{encodingVersion}, body...), nil
}

func decode(blob []byte, v interface{}) error {
	if len(blob) == 0 {
		return fmt.Errorf("empty blob")
	}
	if blob[0] != encodingVersion {
		return fmt.Errorf("unsupported encoding version %d", blob[0])
	}
	return msgpack.Unmarshal(blob[1:], v)
}

// CreateRun inserts a run row.
func (r *Repository) CreateRun(run Run) error {
	_, err := r.db.Exec(`
		INSERT INTO runs (id, seed, start_date, pool_size, gini, mean_income, days, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, int64(run.Seed), run.StartDate.Format("2006-01-02"), run.PoolSize, run.Gini, run.MeanIncome, run.Days, run.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun records how many days a run stepped.
func (r *Repository) FinishRun(id string, days int) error {
	if _, err := r.db.Exec(`UPDATE runs SET days = ? WHERE id = ?`, days, id); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// GetRun loads a run.
func (r *Repository) GetRun(id string) (Run, error) {
	var (
		run       Run
		seed      int64
		startDate string
		created   int64
	)
	err := r.db.QueryRow(`
		SELECT id, seed, start_date, pool_size, gini, mean_income, days, created_at
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &seed, &startDate, &run.PoolSize, &run.Gini, &run.MeanIncome, &run.Days, &created)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("run %s: %w", id, domain.ErrDataUnavailable)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to query run: %w", err)
	}
	run.Seed = uint64(seed)
	run.CreatedAt = time.Unix(created, 0).UTC()
	if run.StartDate, err = time.Parse("2006-01-02", startDate); err != nil {
		return Run{}, fmt.Errorf("bad start date %q: %w", startDate, err)
	}
	return run, nil
}

// SaveAgents replaces the stored agents of a run.
func (r *Repository) SaveAgents(runID string, agents []*TraderAgent) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM traders WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("failed to clear traders: %w", err)
		}
		stmt, err := tx.Prepare(`
			INSERT INTO traders (run_id, trader_id, balance, income_mean, income_sigma, income_interval,
				days_since_last_trade, wealth_class, traits, holdings)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare trader insert: %w", err)
		}
		defer stmt.Close()

		for _, a := range agents {
			traits, err := encode(a.Traits)
			if err != nil {
				return fmt.Errorf("failed to encode traits of %d: %w", a.ID, err)
			}
			holdings, err := encode(a.Holdings)
			if err != nil {
				return fmt.Errorf("failed to encode holdings of %d: %w", a.ID, err)
			}
			if _, err := stmt.Exec(runID, a.ID, a.Balance, a.IncomeMean, a.IncomeSigma, a.IncomeInterval,
				a.DaysSinceLastTrade, a.WealthClass, traits, holdings); err != nil {
				return fmt.Errorf("failed to insert trader %d: %w", a.ID, err)
			}
		}
		return nil
	})
}

// LoadAgents reads the agents of a run and attaches src to each.
func (r *Repository) LoadAgents(runID string, src rand.Source) ([]*TraderAgent, error) {
	rows, err := r.db.Query(`
		SELECT trader_id, balance, income_mean, income_sigma, income_interval,
			days_since_last_trade, wealth_class, traits, holdings
		FROM traders WHERE run_id = ? ORDER BY trader_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query traders: %w", err)
	}
	defer rows.Close()

	var agents []*TraderAgent
	for rows.Next() {
		var (
			agent            TraderAgent
			traits, holdings []byte
		)
		if err := rows.Scan(&agent.ID, &agent.Balance, &agent.IncomeMean, &agent.IncomeSigma, &agent.IncomeInterval,
			&agent.DaysSinceLastTrade, &agent.WealthClass, &traits, &holdings); err != nil {
			return nil, fmt.Errorf("failed to scan trader: %w", err)
		}
		if err := decode(traits, &agent.Traits); err != nil {
			return nil, fmt.Errorf("failed to decode traits of %d: %w", agent.ID, err)
		}
		if err := decode(holdings, &agent.Holdings); err != nil {
			return nil, fmt.Errorf("failed to decode holdings of %d: %w", agent.ID, err)
		}
		if agent.Holdings == nil {
			agent.Holdings = make(map[string]int64)
		}
		agent.Attach(src)
		agents = append(agents, &agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating traders: %w", err)
	}
	return agents, nil
}

// SaveTrends stores one day's sampled trends.
func (r *Repository) SaveTrends(runID string, day int, date time.Time, trends interface{}) error {
	data, err := json.Marshal(trends)
	if err != nil {
		return fmt.Errorf("failed to marshal trends: %w", err)
	}
	_, err = r.db.Exec(`
		INSERT OR REPLACE INTO market_trends (run_id, day, date, data) VALUES (?, ?, ?, ?)
	`, runID, day, date.Format("2006-01-02"), string(data))
	if err != nil {
		return fmt.Errorf("failed to store trends of day %d: %w", day, err)
	}
	return nil
}

// CountTrendDays returns how many trend days are stored for a run.
func (r *Repository) CountTrendDays(runID string) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM market_trends WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count trends: %w", err)
	}
	return n, nil
}
