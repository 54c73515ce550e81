package storage

import (
	"fmt"
	"strconv"
)

// Engine metadata keys stored in engine_meta
const (
	MetaKeyLastScanAt  = "last_scan_at"  // Unix timestamp of last snapshot scan
	MetaKeyLastSweepAt = "last_sweep_at" // Unix timestamp of last cache sweep
)

// GetMeta retrieves a metadata value, empty string if absent
func (db *DB) GetMeta(key string) string {
	var value string
	row := db.QueryRow(`SELECT value FROM engine_meta WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		return ""
	}
	return value
}

// SetMeta sets a metadata value
func (db *DB) SetMeta(key, value string) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO engine_meta (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set meta %s: %w", key, err)
	}
	return nil
}

// GetMetaInt retrieves a metadata value as int64, zero if absent
func (db *DB) GetMetaInt(key string) int64 {
	value := db.GetMeta(key)
	if value == "" {
		return 0
	}
	i, _ := strconv.ParseInt(value, 10, 64)
	return i
}

// SetMetaInt sets a metadata value as int64
func (db *DB) SetMetaInt(key string, value int64) error {
	return db.SetMeta(key, strconv.FormatInt(value, 10))
}
