package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/playground/internal/clientdata"
	"github.com/aristath/playground/internal/clients/exchangerate"
	"github.com/aristath/playground/internal/clients/yahoo"
	"github.com/aristath/playground/internal/config"
	"github.com/aristath/playground/internal/events"
	"github.com/aristath/playground/internal/modules/indices"
	"github.com/aristath/playground/internal/modules/investor"
	"github.com/aristath/playground/internal/modules/ledger"
	"github.com/aristath/playground/internal/modules/population"
	"github.com/aristath/playground/internal/modules/simulation"
	"github.com/aristath/playground/internal/modules/universe"
	"github.com/aristath/playground/internal/reliability"
)

// InitializeServices creates clients, repositories and services, and opens
// the ledger.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	// Clients
	container.ClientData = clientdata.NewCache(container.ClientDataDB.Conn())
	container.Rates = exchangerate.NewClient(cfg.Provider.ExchangeAPI, container.ClientData, log).
		WithTTL(cfg.Provider.ExchangeCache)
	container.Provider = yahoo.NewClient(cfg.Provider, container.Rates, container.ClientData, log)

	publisher, err := events.NewPublisher(cfg.Events, log)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	container.Publisher = publisher

	// Market
	container.UniverseBuilder = universe.NewBuilder(
		container.Provider,
		universe.NewHistoryDB(container.ReferenceDB.Conn(), log),
		log,
	)
	container.IndexStore = indices.NewRepository(container.ReferenceDB.Conn(), log)
	container.Indices = indices.NewService(container.IndexStore, log)
	container.Runs = population.NewRepository(container.AgentsDB.Conn(), log)
	container.Simulation = simulation.New(
		container.UniverseBuilder,
		container.Indices,
		container.Runs,
		population.NoTrade{},
		container.Publisher,
		cfg.Market,
		log,
	)

	// Portfolio
	container.Fees = ledger.NewFeeModel(cfg.Fees)
	container.Ledger = ledger.New(
		ledger.NewRepository(container.LedgerDB.Conn(), log),
		container.Fees,
		container.Provider,
		container.Provider,
		container.Publisher,
		log,
	)
	if err := container.Ledger.Open(ctx, decimal.NewFromFloat(cfg.Ledger.InitialBalance), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	container.Reference = ledger.NewMarketReference(container.Provider, cfg.Ledger.BenchmarkSymbol, cfg.Ledger.RiskFreeSymbol).
		WithIndices(container.IndexStore)
	container.Investor = investor.New(
		container.Ledger,
		investor.NewRepository(container.LedgerDB.Conn(), log),
		container.Provider,
		container.Fees,
		cfg.Ledger,
		log,
	)

	// Reliability
	if cfg.Backup.Enabled {
		store, err := reliability.NewS3Client(ctx, cfg.Backup, log)
		if err != nil {
			return err
		}
		container.Backup = reliability.NewBackupService(store, container.Databases(), cfg.DataDir, container.Publisher, log)
	}

	log.Info().Msg("Services initialized")
	return nil
}

// UniverseEntries returns the configured universe: the universe file's
// entries, then any extra configured tickers. With neither set the default
// tickers are used.
func UniverseEntries(cfg config.MarketConfig) ([]universe.Entry, error) {
	var entries []universe.Entry
	if cfg.UniverseFile != "" {
		f, err := universe.LoadFile(cfg.UniverseFile)
		if err != nil {
			return nil, err
		}
		entries = f.Tickers
	}
	entries = universe.Merge(entries, cfg.Tickers)
	if len(entries) == 0 {
		entries = universe.EntriesFor(universe.DefaultTickers)
	}
	return entries, nil
}
