package detect

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"verdict/internal/logging"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestDetector(t *testing.T) (*Detector, string) {
	t.Helper()
	root := t.TempDir()
	return NewDetector(root, DefaultThresholds(), nil, logging.Discard()), root
}

func TestScanClassifiesChanges(t *testing.T) {
	d, root := newTestDetector(t)

	writeFile(t, root, "a.json", `{"k":"v"}`)
	writeFile(t, root, "b.js", `let x = "x";`)

	paths := []string{"a.json", "b.js"}
	_, prior := d.Scan(paths, nil)

	// a.json unchanged, b.js modified, c.js new
	writeFile(t, root, "b.js", `let x = "y";`)
	writeFile(t, root, "c.js", `console.log("new");`)

	changes, next := d.Scan([]string{"a.json", "b.js", "c.js"}, prior)

	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2: %+v", len(changes), changes)
	}

	byPath := make(map[string]ChangeRecord)
	for _, c := range changes {
		byPath[c.Path] = c
	}

	if _, ok := byPath["a.json"]; ok {
		t.Error("unchanged a.json must be absent from the change list")
	}

	mod, ok := byPath["b.js"]
	if !ok {
		t.Fatal("b.js missing from change list")
	}
	if mod.Kind != ChangeModified {
		t.Errorf("b.js kind = %s, want modified", mod.Kind)
	}
	if mod.Magnitude != MagnitudeMinor {
		t.Errorf("b.js magnitude = %s, want minor", mod.Magnitude)
	}

	added, ok := byPath["c.js"]
	if !ok {
		t.Fatal("c.js missing from change list")
	}
	if added.Kind != ChangeAdded {
		t.Errorf("c.js kind = %s, want added", added.Kind)
	}

	if len(next) != 3 {
		t.Errorf("next snapshot has %d files, want 3", len(next))
	}
}

func TestScanIdempotent(t *testing.T) {
	d, root := newTestDetector(t)

	writeFile(t, root, "x.go", "package main\n")
	writeFile(t, root, "sub/y.go", "package sub\n")

	paths := []string{"x.go", "sub/y.go"}
	_, snap1 := d.Scan(paths, nil)
	changes, snap2 := d.Scan(paths, snap1)

	if len(changes) != 0 {
		t.Errorf("rescan without modification produced %d changes: %+v", len(changes), changes)
	}
	if len(snap2) != len(snap1) {
		t.Errorf("snapshot size changed: %d -> %d", len(snap1), len(snap2))
	}
	for path, fp := range snap1 {
		if snap2[path].ContentHash != fp.ContentHash {
			t.Errorf("hash for %s changed across idempotent scans", path)
		}
	}
}

func TestScanDetectsDeleted(t *testing.T) {
	d, root := newTestDetector(t)

	writeFile(t, root, "keep.txt", "keep")
	writeFile(t, root, "gone.txt", "gone")

	_, prior := d.Scan([]string{"keep.txt", "gone.txt"}, nil)

	changes, next := d.Scan([]string{"keep.txt"}, prior)

	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	if changes[0].Kind != ChangeDeleted || changes[0].Path != "gone.txt" {
		t.Errorf("change = %+v, want deleted gone.txt", changes[0])
	}
	if _, ok := next["gone.txt"]; ok {
		t.Error("deleted file must not appear in next snapshot")
	}
}

func TestUnreadableFileIsSkippedNotDeleted(t *testing.T) {
	d, root := newTestDetector(t)

	writeFile(t, root, "flaky.txt", "content")
	_, prior := d.Scan([]string{"flaky.txt"}, nil)

	// Remove the file but keep it in the scan set: reads fail, which is
	// indistinguishable from any other IO failure at this layer.
	if err := os.Remove(filepath.Join(root, "flaky.txt")); err != nil {
		t.Fatal(err)
	}

	changes, next := d.Scan([]string{"flaky.txt"}, prior)

	if len(changes) != 0 {
		t.Errorf("unreadable file produced changes: %+v", changes)
	}

	fp, ok := next["flaky.txt"]
	if !ok {
		t.Fatal("unreadable file must retain its prior fingerprint")
	}
	if fp.ContentHash != prior["flaky.txt"].ContentHash {
		t.Error("prior fingerprint must be retained unchanged")
	}
}

func TestMagnitudeGrading(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name      string
		byteDelta int64
		lineDelta int
		want      Magnitude
	}{
		{"tiny edit", 10, 1, MagnitudeMinor},
		{"large byte delta", 6000, 0, MagnitudeMajor},
		{"large line delta", 0, 500, MagnitudeMajor},
		{"middling", 2000, 50, MagnitudeModerate},
		{"bytes small lines middling", 100, 50, MagnitudeModerate},
		{"negative delta graded by absolute value", -6000, 0, MagnitudeMajor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := th.Grade(tt.byteDelta, tt.lineDelta); got != tt.want {
				t.Errorf("Grade(%d, %d) = %s, want %s", tt.byteDelta, tt.lineDelta, got, tt.want)
			}
		})
	}
}

func TestScanDirSkipsExcluded(t *testing.T) {
	root := t.TempDir()
	d := NewDetector(root, DefaultThresholds(), []string{"build"}, logging.Discard())

	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "build/out.bin", "binary")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main")

	changes, next, err := d.ScanDir(nil)
	if err != nil {
		t.Fatalf("ScanDir failed: %v", err)
	}

	if len(next) != 1 {
		t.Fatalf("snapshot = %v, want only main.go", next)
	}
	if _, ok := next["main.go"]; !ok {
		t.Error("main.go missing from snapshot")
	}
	if len(changes) != 1 || changes[0].Kind != ChangeAdded {
		t.Errorf("changes = %+v, want single added record", changes)
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"one line, no newline", 1},
		{"a\nb\n", 2},
		{"a\nb\nc", 3},
		{strings.Repeat("x\n", 100), 100},
	}

	for _, tt := range tests {
		if got := countLines([]byte(tt.content)); got != tt.want {
			t.Errorf("countLines(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}
