// Package detect fingerprints files and classifies differences against a
// prior snapshot. Snapshots are replaced atomically on each scan; a crash
// mid-scan leaves the previous snapshot intact.
package detect

// ChangeKind represents how a file changed. Files that could not be read
// this scan have no kind: they are excluded from the change list and keep
// their prior fingerprint, and are never reported as deleted.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// Magnitude grades how large a modification is
type Magnitude string

const (
	MagnitudeMinor    Magnitude = "minor"
	MagnitudeModerate Magnitude = "moderate"
	MagnitudeMajor    Magnitude = "major"
)

// FileFingerprint uniquely identifies one content version of a file.
// Recomputed on every scan.
type FileFingerprint struct {
	Path        string `json:"path"`
	ContentHash string `json:"contentHash"`
	Size        int64  `json:"size"`
	Mtime       int64  `json:"mtime"`
	LineCount   int    `json:"lineCount"`
}

// ChangeRecord is one classified difference between two snapshots
type ChangeRecord struct {
	Kind      ChangeKind       `json:"kind"`
	Path      string           `json:"path"`
	Old       *FileFingerprint `json:"old,omitempty"`
	New       *FileFingerprint `json:"new,omitempty"`
	Magnitude Magnitude        `json:"magnitude,omitempty"`
}

// Snapshot maps relative path to fingerprint. Snapshots are value sets:
// a scan produces a complete new one, never edits the old one in place.
type Snapshot map[string]FileFingerprint

// Thresholds control modification magnitude grading
type Thresholds struct {
	MinorBytes int64
	MajorBytes int64
	MinorLines int
	MajorLines int
}

// DefaultThresholds returns the default magnitude thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinorBytes: 1000,
		MajorBytes: 5000,
		MinorLines: 10,
		MajorLines: 200,
	}
}

// Grade classifies a modification by its byte and line deltas: both deltas
// under the minor thresholds grade minor, either delta over a major
// threshold grades major, everything else is moderate.
func (t Thresholds) Grade(byteDelta int64, lineDelta int) Magnitude {
	if byteDelta < 0 {
		byteDelta = -byteDelta
	}
	if lineDelta < 0 {
		lineDelta = -lineDelta
	}

	if byteDelta > t.MajorBytes || lineDelta > t.MajorLines {
		return MagnitudeMajor
	}
	if byteDelta < t.MinorBytes && lineDelta < t.MinorLines {
		return MagnitudeMinor
	}
	return MagnitudeModerate
}
