package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/playground/internal/config"
	"github.com/aristath/playground/internal/database"
)

// InitializeDatabases opens the four databases and applies their schemas:
//   - ledger.db: transactions and portfolio states of the real investor
//   - client_data.db: provider and exchange rate response cache
//   - reference.db: derived companies, price histories and indices
//   - agents.db: simulation runs, agents and sampled trends
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}
	targets := []struct {
		name string
		dst  **database.DB
	}{
		{database.NameLedger, &container.LedgerDB},
		{database.NameClientData, &container.ClientDataDB},
		{database.NameReference, &container.ReferenceDB},
		{database.NameAgents, &container.AgentsDB},
	}

	for _, t := range targets {
		db, err := database.Open(cfg.DataDir, t.name)
		if err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to initialize %s database: %w", t.name, err)
		}
		*t.dst = db
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("All databases initialized and schemas applied")
	return container, nil
}
