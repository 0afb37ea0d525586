// Package clientdata caches provider and exchange rate responses in
// client_data.db. Entries expire but are kept until purged, so a failing
// upstream can still be answered from stale data.
package clientdata

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/playground/internal/database"
)

// Table is a cache table with its key column and default freshness.
type Table struct {
	Name string
	Key  string
	TTL  time.Duration
}

// Cache tables.
var (
	ExchangeRates = Table{Name: "exchangerate", Key: "pair", TTL: time.Hour}
	CurrentPrices = Table{Name: "current_prices", Key: "symbol", TTL: 10 * time.Minute}
	// Shares outstanding and quote type barely move
	Fundamentals = Table{Name: "yahoo_fundamentals", Key: "symbol", TTL: 7 * 24 * time.Hour}
)

// Tables lists every cache table.
var Tables = []Table{ExchangeRates, CurrentPrices, Fundamentals}

// ErrUnknownTable is returned for a Table not in Tables.
var ErrUnknownTable = errors.New("unknown cache table")

func known(t Table) error {
	for _, k := range Tables {
		if k == t {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownTable, t.Name)
}

// Cache stores msgpack-encoded values with an expiry.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// NewCache creates a cache over the client_data database.
func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db, now: time.Now}
}

// Put stores v under key for the table's TTL.
func (c *Cache) Put(t Table, key string, v interface{}) error {
	return c.PutTTL(t, key, v, t.TTL)
}

// PutTTL stores v under key, fresh for ttl. A non-positive ttl stores an
// already stale entry.
func (c *Cache) PutTTL(t Table, key string, v interface{}, ttl time.Duration) error {
	if err := known(t); err != nil {
		return err
	}
	blob, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", t.Name, key, err)
	}
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s, data, expires_at) VALUES (?, ?, ?)", t.Name, t.Key)
	if _, err := c.db.Exec(query, key, blob, c.now().Add(ttl).Unix()); err != nil {
		return fmt.Errorf("failed to store %s/%s: %w", t.Name, key, err)
	}
	return nil
}

// Fresh decodes an unexpired entry into out and reports whether there was one.
func (c *Cache) Fresh(t Table, key string, out interface{}) (bool, error) {
	return c.lookup(t, key, true, out)
}

// Stale decodes an entry of any age into out.
func (c *Cache) Stale(t Table, key string, out interface{}) (bool, error) {
	return c.lookup(t, key, false, out)
}

func (c *Cache) lookup(t Table, key string, fresh bool, out interface{}) (bool, error) {
	if err := known(t); err != nil {
		return false, err
	}

	query := fmt.Sprintf("SELECT data, expires_at FROM %s WHERE %s = ?", t.Name, t.Key)
	var (
		blob      []byte
		expiresAt int64
	)
	err := c.db.QueryRow(query, key).Scan(&blob, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s/%s: %w", t.Name, key, err)
	}
	if fresh && expiresAt <= c.now().Unix() {
		return false, nil
	}
	if err := msgpack.Unmarshal(blob, out); err != nil {
		return false, fmt.Errorf("failed to decode %s/%s: %w", t.Name, key, err)
	}
	return true, nil
}

// Delete removes one entry.
func (c *Cache) Delete(t Table, key string) error {
	if err := known(t); err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.Name, t.Key)
	if _, err := c.db.Exec(query, key); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", t.Name, key, err)
	}
	return nil
}

// Purge removes expired entries from every table in one transaction and
// returns the count per table.
func (c *Cache) Purge() (map[string]int64, error) {
	now := c.now().Unix()
	purged := make(map[string]int64, len(Tables))
	err := database.WithTransaction(c.db, func(tx *sql.Tx) error {
		for _, t := range Tables {
			res, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE expires_at <= ?", t.Name), now)
			if err != nil {
				return fmt.Errorf("failed to purge %s: %w", t.Name, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			purged[t.Name] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return purged, nil
}
