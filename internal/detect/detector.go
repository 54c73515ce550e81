package detect

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"verdict/internal/logging"
)

// Directories skipped during directory scans
var skipDirs = map[string]bool{
	".git":         true,
	".verdict":     true,
	"vendor":       true,
	"node_modules": true,
	"dist":         true,
	"out":          true,
	".cache":       true,
}

// Detector fingerprints files and diffs snapshots
type Detector struct {
	root       string
	thresholds Thresholds
	excludes   []string
	logger     *logging.Logger
}

// NewDetector creates a detector rooted at root. Paths passed to Scan and
// recorded in snapshots are relative to root.
func NewDetector(root string, thresholds Thresholds, excludes []string, logger *logging.Logger) *Detector {
	return &Detector{
		root:       root,
		thresholds: thresholds,
		excludes:   excludes,
		logger:     logger,
	}
}

// Fingerprint computes the fingerprint for one file, given as a path
// relative to the detector root.
func (d *Detector) Fingerprint(relPath string) (FileFingerprint, error) {
	full := filepath.Join(d.root, relPath)

	info, err := os.Stat(full)
	if err != nil {
		return FileFingerprint{}, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return FileFingerprint{}, err
	}

	sum := sha256.Sum256(data)

	return FileFingerprint{
		Path:        filepath.ToSlash(relPath),
		ContentHash: hex.EncodeToString(sum[:]),
		Size:        int64(len(data)),
		Mtime:       info.ModTime().Unix(),
		LineCount:   countLines(data),
	}, nil
}

// Scan fingerprints the given relative paths and classifies them against
// prior. It returns the change list and the complete next snapshot; prior
// is never modified. Persisting the next snapshot is the caller's job
// (SnapshotStore.Replace), keeping the swap all-or-nothing.
//
// Unreadable files are logged, kept in the next snapshot under their prior
// fingerprint, and excluded from the change list. Files present in prior
// but absent from paths are deleted.
func (d *Detector) Scan(paths []string, prior Snapshot) ([]ChangeRecord, Snapshot) {
	next := make(Snapshot, len(paths))
	var changes []ChangeRecord
	scanned := make(map[string]bool, len(paths))

	for _, p := range paths {
		rel := filepath.ToSlash(p)
		scanned[rel] = true

		fp, err := d.Fingerprint(rel)
		if err != nil {
			// IO failure: unknown, never deleted. Keep what we knew.
			d.logger.Warn("Skipping unreadable file", map[string]interface{}{
				"path":  rel,
				"error": err.Error(),
			})
			if old, ok := prior[rel]; ok {
				next[rel] = old
			}
			continue
		}

		old, existed := prior[rel]
		next[rel] = fp

		switch {
		case !existed:
			fpCopy := fp
			changes = append(changes, ChangeRecord{
				Kind:      ChangeAdded,
				Path:      rel,
				New:       &fpCopy,
				Magnitude: MagnitudeMajor,
			})
		case old.ContentHash != fp.ContentHash:
			oldCopy, fpCopy := old, fp
			changes = append(changes, ChangeRecord{
				Kind:      ChangeModified,
				Path:      rel,
				Old:       &oldCopy,
				New:       &fpCopy,
				Magnitude: d.thresholds.Grade(fp.Size-old.Size, fp.LineCount-old.LineCount),
			})
		}
		// Identical hash: unchanged, no record
	}

	for path, old := range prior {
		if scanned[path] {
			continue
		}
		oldCopy := old
		changes = append(changes, ChangeRecord{
			Kind:      ChangeDeleted,
			Path:      path,
			Old:       &oldCopy,
			Magnitude: MagnitudeMajor,
		})
	}

	return changes, next
}

// ScanDir walks the detector root collecting every regular file not
// excluded, then runs Scan over the result. Inaccessible directory entries
// are skipped, not fatal.
func (d *Detector) ScanDir(prior Snapshot) ([]ChangeRecord, Snapshot, error) {
	var paths []string

	err := filepath.Walk(d.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr // Skip inaccessible entries, continue walking
		}

		if info.IsDir() {
			base := filepath.Base(path)
			if skipDirs[base] || d.isExcluded(path) {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		relPath, relErr := filepath.Rel(d.root, path)
		if relErr != nil {
			return nil
		}
		if d.isExcluded(relPath) {
			return nil
		}

		paths = append(paths, filepath.ToSlash(relPath))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	changes, next := d.Scan(paths, prior)
	return changes, next, nil
}

// isExcluded checks a path against the configured exclude patterns.
// Paths are normalized to forward slashes for consistent matching across OS.
func (d *Detector) isExcluded(path string) bool {
	normalizedPath := filepath.ToSlash(path)

	for _, pattern := range d.excludes {
		normalizedPattern := filepath.ToSlash(pattern)

		if matched, _ := filepath.Match(normalizedPattern, normalizedPath); matched {
			return true
		}

		// Directory exclude: pattern "vendor" matches "vendor/foo/bar.go"
		dirPattern := strings.TrimSuffix(normalizedPattern, "/") + "/"
		if strings.HasPrefix(normalizedPath, dirPattern) {
			return true
		}

		if normalizedPath == strings.TrimSuffix(normalizedPattern, "/") {
			return true
		}
	}
	return false
}

// countLines counts lines the way editors do: a trailing byte without a
// final newline still counts as a line.
func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}
