package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T, name string) *DB {
	t.Helper()
	db, err := Open(t.TempDir(), name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_AppliesSchemas(t *testing.T) {
	tests := []struct {
		name   string
		tables []string
	}{
		{NameLedger, []string{"transactions", "portfolio", "investor_state"}},
		{NameClientData, []string{"exchangerate", "current_prices", "yahoo_fundamentals"}},
		{NameReference, []string{"companies", "price_history", "index_levels", "index_distributions"}},
		{NameAgents, []string{"runs", "traders", "market_trends"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openTemp(t, tt.name)
			assert.Equal(t, ProfileFor(tt.name), db.Profile())

			for _, table := range tt.tables {
				var n int
				err := db.Conn().QueryRow(
					"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table,
				).Scan(&n)
				require.NoError(t, err)
				assert.Equal(t, 1, n, "table %s", table)
			}

			// Re-applying is a no-op.
			require.NoError(t, db.Migrate())
		})
	}
}

func TestLedger_RejectsUpdatesAndDeletes(t *testing.T) {
	db := openTemp(t, NameLedger)

	_, err := db.Conn().Exec(`INSERT INTO transactions (uuid, date, action, symbol, price, quantity, fee, status, created_at)
		VALUES ('t1', '2024-01-02 00:00:00', 'BUY', 'AAPL', 10, 1, 5, 'SUCCESS', 0)`)
	require.NoError(t, err)

	_, err = db.Conn().Exec(`UPDATE transactions SET fee = 0`)
	assert.Error(t, err)

	_, err = db.Conn().Exec(`DELETE FROM transactions`)
	assert.Error(t, err)
}

func TestWithTransaction(t *testing.T) {
	db := openTemp(t, NameReference)
	insert := `INSERT INTO index_levels (index_key, date, price_index, index_returns) VALUES (?, '2024-01-01', 1, 0)`

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(insert, "world")
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(insert, "sector:Tech"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, _ = tx.Exec(insert, "region:Europe")
		panic("unexpected")
	})
	assert.Error(t, err)

	var n int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM index_levels`).Scan(&n))
	assert.Equal(t, 1, n)

	assert.Error(t, WithTransaction(nil, func(*sql.Tx) error { return nil }))
}

func TestSnapshotToAndHealth(t *testing.T) {
	db := openTemp(t, NameLedger)
	ctx := context.Background()

	require.NoError(t, db.HealthCheck(ctx))
	require.NoError(t, db.WALCheckpoint(""))

	dest := filepath.Join(t.TempDir(), "copy", "ledger.db")
	require.NoError(t, db.SnapshotTo(ctx, dest))

	copyDB, err := New(Config{Path: dest, Profile: ProfileLedger, Name: NameLedger})
	require.NoError(t, err)
	defer copyDB.Close()

	var n int
	require.NoError(t, copyDB.Conn().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE name = 'portfolio'").Scan(&n))
	assert.Equal(t, 1, n)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageSize, int64(0))
}

func TestBuildConnectionString(t *testing.T) {
	ledger := buildConnectionString("/tmp/ledger.db", ProfileLedger)
	assert.Contains(t, ledger, "synchronous(FULL)")
	assert.Contains(t, ledger, "auto_vacuum(NONE)")

	cache := buildConnectionString("file:x?mode=memory", ProfileCache)
	assert.Contains(t, cache, "file:x?mode=memory&_pragma=journal_mode(WAL)")
	assert.Contains(t, cache, "synchronous(OFF)")
}

// The schemas must stay plain SQLite so the cgo driver can read the same files.
func TestSchemas_ApplyWithCGODriver(t *testing.T) {
	for name, file := range schemaFiles {
		t.Run(name, func(t *testing.T) {
			content, err := schemaFS.ReadFile(file)
			require.NoError(t, err)

			conn, err := sql.Open("sqlite3", ":memory:")
			require.NoError(t, err)
			defer conn.Close()

			_, err = conn.Exec(string(content))
			require.NoError(t, err)
			// Re-applying is a no-op
			_, err = conn.Exec(string(content))
			assert.NoError(t, err)
		})
	}
}
