// Package di wires databases, clients, services and jobs together.
package di

import (
	"github.com/aristath/playground/internal/clientdata"
	"github.com/aristath/playground/internal/clients/exchangerate"
	"github.com/aristath/playground/internal/clients/yahoo"
	"github.com/aristath/playground/internal/database"
	"github.com/aristath/playground/internal/events"
	"github.com/aristath/playground/internal/modules/indices"
	"github.com/aristath/playground/internal/modules/investor"
	"github.com/aristath/playground/internal/modules/ledger"
	"github.com/aristath/playground/internal/modules/population"
	"github.com/aristath/playground/internal/modules/simulation"
	"github.com/aristath/playground/internal/modules/universe"
	"github.com/aristath/playground/internal/reliability"
)

// Container holds every application dependency.
type Container struct {
	// Databases
	LedgerDB     *database.DB
	ClientDataDB *database.DB
	ReferenceDB  *database.DB
	AgentsDB     *database.DB

	// Clients
	ClientData *clientdata.Cache
	Rates      *exchangerate.Client
	Provider   *yahoo.Client
	Publisher  events.Publisher

	// Market
	UniverseBuilder *universe.Builder
	IndexStore      *indices.Repository
	Indices         *indices.Service
	Runs            *population.Repository
	Simulation      *simulation.Driver

	// Portfolio
	Fees      ledger.FeeModel
	Ledger    *ledger.Ledger
	Reference *ledger.MarketReference
	Investor  *investor.Investor

	// Reliability
	Backup *reliability.BackupService
}

// Databases returns every open database.
func (c *Container) Databases() []*database.DB {
	var out []*database.DB
	for _, db := range []*database.DB{c.LedgerDB, c.ClientDataDB, c.ReferenceDB, c.AgentsDB} {
		if db != nil {
			out = append(out, db)
		}
	}
	return out
}

// Close releases clients and closes the databases.
func (c *Container) Close() {
	if c.Provider != nil {
		c.Provider.Close()
	}
	if c.Publisher != nil {
		_ = c.Publisher.Close()
	}
	for _, db := range c.Databases() {
		_ = db.Close()
	}
}
