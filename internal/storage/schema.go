package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createDecisionCacheTable(tx); err != nil {
			return err
		}
		if err := createSnapshotTable(tx); err != nil {
			return err
		}
		if err := createTokensTable(tx); err != nil {
			return err
		}
		if err := createMetaTable(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})

		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if version == currentSchemaVersion {
		return nil
	}

	// Version 0 means the schema tables are missing entirely; re-initialize.
	if version == 0 {
		return db.initializeSchema()
	}

	// Migrations run sequentially as the schema evolves.
	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createDecisionCacheTable creates the content-addressed decision cache.
// Keys are context fingerprints (hex digests); hit_count is incremented
// in place so concurrent reads never lose increments.
func createDecisionCacheTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS decision_cache (
			key TEXT PRIMARY KEY,
			decision TEXT NOT NULL,
			rationale TEXT NOT NULL,
			confidence REAL NOT NULL CHECK(confidence >= 0.0 AND confidence <= 1.0),
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			hit_count INTEGER NOT NULL DEFAULT 0,

			CHECK(expires_at > created_at)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create decision_cache table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_decision_cache_expires_at ON decision_cache(expires_at)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createSnapshotTable creates the file-fingerprint snapshot table.
// The snapshot is replaced wholesale inside one transaction on each scan.
func createSnapshotTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot_files (
			path TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL,
			size INTEGER NOT NULL,
			mtime INTEGER NOT NULL,
			line_count INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create snapshot_files table: %w", err)
	}
	return nil
}

// createTokensTable creates the API token table for the HTTP server
func createTokensTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS api_tokens (
			key_id TEXT PRIMARY KEY,
			token_prefix TEXT NOT NULL,
			token_hash TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			revoked_at TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create api_tokens table: %w", err)
	}

	if _, err := tx.Exec(
		"CREATE INDEX IF NOT EXISTS idx_api_tokens_prefix ON api_tokens(token_prefix)",
	); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// createMetaTable creates the engine metadata key/value table
func createMetaTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS engine_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create engine_meta table: %w", err)
	}
	return nil
}
