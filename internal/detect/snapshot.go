package detect

import (
	"database/sql"
	"fmt"
	"time"

	"verdict/internal/logging"
	"verdict/internal/storage"
)

// SnapshotStore persists the file-fingerprint snapshot in sqlite.
// Replace swaps the whole snapshot inside one transaction, so readers see
// either the old snapshot or the new one, never a mix.
type SnapshotStore struct {
	db     *storage.DB
	logger *logging.Logger
}

// NewSnapshotStore creates a snapshot store backed by db
func NewSnapshotStore(db *storage.DB, logger *logging.Logger) *SnapshotStore {
	return &SnapshotStore{db: db, logger: logger}
}

// Load reads the current snapshot. An empty table yields an empty snapshot.
func (s *SnapshotStore) Load() (Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT path, content_hash, size, mtime, line_count
		FROM snapshot_files
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Best effort cleanup

	snapshot := make(Snapshot)
	for rows.Next() {
		var fp FileFingerprint
		if err := rows.Scan(&fp.Path, &fp.ContentHash, &fp.Size, &fp.Mtime, &fp.LineCount); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snapshot[fp.Path] = fp
	}

	return snapshot, rows.Err()
}

// Replace atomically swaps the stored snapshot for next. If the transaction
// fails at any point, the prior snapshot is left intact.
func (s *SnapshotStore) Replace(next Snapshot) error {
	err := s.db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM snapshot_files`); err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO snapshot_files (path, content_hash, size, mtime, line_count)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare snapshot insert: %w", err)
		}
		defer stmt.Close() //nolint:errcheck // Best effort cleanup

		for _, fp := range next {
			if _, err := stmt.Exec(fp.Path, fp.ContentHash, fp.Size, fp.Mtime, fp.LineCount); err != nil {
				return fmt.Errorf("failed to insert fingerprint for %s: %w", fp.Path, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if err := s.db.SetMetaInt(storage.MetaKeyLastScanAt, time.Now().Unix()); err != nil {
		s.logger.Warn("Failed to record scan time", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return nil
}
