package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"verdict/internal/config"
	"verdict/internal/logging"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir(), logging.Discard())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenCreatesSchema(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"decision_cache", "snapshot_files", "api_tokens", "engine_meta", "schema_version"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("getSchemaVersion failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	logger := logging.Discard()

	db, err := Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if err := db.SetMeta("probe", "value"); err != nil {
		t.Fatalf("SetMeta failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	db, err = Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	if got := db.GetMeta("probe"); got != "value" {
		t.Errorf("meta after reopen = %q, want %q", got, "value")
	}
}

func TestOpenRecoversFromCorruptStore(t *testing.T) {
	tmpDir := t.TempDir()
	stateDir := filepath.Join(tmpDir, config.StateDirName)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		t.Fatal(err)
	}

	// Garbage where the database should be
	dbPath := filepath.Join(stateDir, "verdict.db")
	if err := os.WriteFile(dbPath, []byte("this is not a sqlite database"), 0644); err != nil {
		t.Fatal(err)
	}

	db, err := Open(tmpDir, logging.Discard())
	if err != nil {
		t.Fatalf("Open must recover from corruption, got: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Fresh, usable, empty store
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM decision_cache").Scan(&count); err != nil {
		t.Fatalf("recovered store unusable: %v", err)
	}
	if count != 0 {
		t.Errorf("recovered store has %d entries, want 0", count)
	}

	// The corrupt file was preserved for inspection
	if _, err := os.Stat(dbPath + ".corrupt"); err != nil {
		t.Errorf("corrupt file not preserved: %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)

	wantErr := os.ErrInvalid
	err := db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO engine_meta (key, value) VALUES ('k', 'v')`); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("WithTx error = %v, want %v", err, wantErr)
	}

	if got := db.GetMeta("k"); got != "" {
		t.Errorf("rolled-back write visible: %q", got)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if got := db.GetMeta("absent"); got != "" {
		t.Errorf("absent meta = %q, want empty", got)
	}

	if err := db.SetMetaInt(MetaKeyLastScanAt, 1700000000); err != nil {
		t.Fatalf("SetMetaInt failed: %v", err)
	}
	if got := db.GetMetaInt(MetaKeyLastScanAt); got != 1700000000 {
		t.Errorf("GetMetaInt = %d, want 1700000000", got)
	}

	// Overwrite
	if err := db.SetMetaInt(MetaKeyLastScanAt, 1700000001); err != nil {
		t.Fatal(err)
	}
	if got := db.GetMetaInt(MetaKeyLastScanAt); got != 1700000001 {
		t.Errorf("GetMetaInt after overwrite = %d, want 1700000001", got)
	}
}
