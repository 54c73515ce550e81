package detect

import (
	"testing"

	"verdict/internal/logging"
	"verdict/internal/storage"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	db, err := storage.Open(t.TempDir(), logging.Discard())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewSnapshotStore(db, logging.Discard())
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	empty, err := store.Load()
	if err != nil {
		t.Fatalf("Load on empty store failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("fresh store returned %d fingerprints", len(empty))
	}

	snap := Snapshot{
		"a.go": {Path: "a.go", ContentHash: "aaa", Size: 10, Mtime: 1700000000, LineCount: 2},
		"b.go": {Path: "b.go", ContentHash: "bbb", Size: 20, Mtime: 1700000001, LineCount: 4},
	}
	if err := store.Replace(snap); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d fingerprints, want 2", len(loaded))
	}
	if loaded["a.go"] != snap["a.go"] {
		t.Errorf("a.go fingerprint = %+v, want %+v", loaded["a.go"], snap["a.go"])
	}
}

func TestReplaceIsWholesale(t *testing.T) {
	store := newTestStore(t)

	first := Snapshot{
		"old.go": {Path: "old.go", ContentHash: "x", Size: 1, Mtime: 1, LineCount: 1},
	}
	if err := store.Replace(first); err != nil {
		t.Fatal(err)
	}

	second := Snapshot{
		"new.go": {Path: "new.go", ContentHash: "y", Size: 2, Mtime: 2, LineCount: 1},
	}
	if err := store.Replace(second); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := loaded["old.go"]; ok {
		t.Error("replaced snapshot must not retain old entries")
	}
	if _, ok := loaded["new.go"]; !ok {
		t.Error("new snapshot entry missing")
	}
}

func TestReplaceEmptySnapshot(t *testing.T) {
	store := newTestStore(t)

	if err := store.Replace(Snapshot{
		"a.go": {Path: "a.go", ContentHash: "x", Size: 1, Mtime: 1, LineCount: 1},
	}); err != nil {
		t.Fatal(err)
	}

	if err := store.Replace(Snapshot{}); err != nil {
		t.Fatalf("replacing with empty snapshot failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 0 {
		t.Errorf("loaded %d fingerprints after empty replace, want 0", len(loaded))
	}
}
