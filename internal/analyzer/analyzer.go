// Package analyzer defines the deep-analysis backend used as the last
// classification resort. Units are submitted in batches with a compressed
// context summary; the backend returns a decision per unit.
package analyzer

import (
	"context"
)

// UnitSummary is the per-unit payload sent to the backend
type UnitSummary struct {
	Key       string `json:"key"`
	Path      string `json:"path"`
	Extension string `json:"extension"`
	Text      string `json:"text,omitempty"`
}

// Request is one batched analysis call
type Request struct {
	BatchID string        `json:"batchId"`
	Pattern string        `json:"pattern"` // shared shape of the batch, e.g. ".ts in src/api"
	Summary []byte        `json:"summary,omitempty"` // zstd-compressed context summary
	Units   []UnitSummary `json:"units"`
}

// Decision is the backend's answer for one unit
type Decision struct {
	Label      string  `json:"label"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

// Analyzer performs deep analysis of a batch of units. Implementations
// must honor the context deadline and return results keyed by UnitSummary.Key.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (map[string]Decision, error)
}
