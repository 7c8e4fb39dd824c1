package state

import (
	"database/sql"
	"fmt"
	"time"
)

// Context/snapshot document store plus atomic counters.
// Documents are JSON blobs keyed by string (project contexts and
// workflow snapshots); counters back the aggregate cost metrics.

// SetContext stores a context document under key, replacing any
// existing value.
func (db *DB) SetContext(key string, value []byte) error {
	_, err := db.Exec(`
		INSERT INTO contexts (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(value), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("set context %s: %w", key, err)
	}
	return nil
}

// GetContext retrieves a context document. Returns nil if absent.
func (db *DB) GetContext(key string) ([]byte, error) {
	row := db.QueryRow("SELECT value FROM contexts WHERE key = ?", key)

	var value string
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get context %s: %w", key, err)
	}
	return []byte(value), nil
}

// DeleteContext removes a context document.
func (db *DB) DeleteContext(key string) error {
	_, err := db.Exec("DELETE FROM contexts WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("delete context %s: %w", key, err)
	}
	return nil
}

// CountContexts returns the number of stored context documents.
func (db *DB) CountContexts() (int, error) {
	row := db.QueryRow("SELECT COUNT(*) FROM contexts")

	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count contexts: %w", err)
	}
	return n, nil
}

// IncrementCounter atomically adds delta to the named counter,
// creating it at delta if absent.
func (db *DB) IncrementCounter(name string, delta float64) error {
	return db.Transaction(func(tx *sql.Tx) error {
		return incrementCounterTx(tx, name, delta)
	})
}

// GetCounter returns the counter's value, 0 if absent.
func (db *DB) GetCounter(name string) (float64, error) {
	row := db.QueryRow("SELECT value FROM counters WHERE name = ?", name)

	var value float64
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get counter %s: %w", name, err)
	}
	return value, nil
}

// incrementCounterTx performs the UPSERT increment inside an existing
// transaction, so callers can bundle it with other writes.
func incrementCounterTx(tx *sql.Tx, name string, delta float64) error {
	_, err := tx.Exec(`
		INSERT INTO counters (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = value + excluded.value
	`, name, delta)
	if err != nil {
		return fmt.Errorf("increment counter %s: %w", name, err)
	}
	return nil
}
