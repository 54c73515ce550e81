package evidence

import (
	"testing"
)

func testConstraints() []Constraint {
	return []Constraint{
		{
			Rule:     "no-delete-without-backup",
			Severity: SeverityCritical,
			Pattern:  `\bdelete\b`,
			Requires: []string{"backup-confirmation"},
		},
		{
			Rule:     "perf-claims-need-measurement",
			Severity: SeverityHigh,
			Pattern:  `\b(faster|slower|performance)\b`,
			Requires: []string{"measurement"},
		},
	}
}

func TestHardConstraintRejects(t *testing.T) {
	gate, err := NewGate(testConstraints())
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	claim := Claim{
		Statement:  "delete the staging dataset",
		Confidence: 0.99,
	}
	verdict := gate.Validate(claim, nil)

	if verdict.Status != StatusRejected {
		t.Fatalf("status = %q, want %q", verdict.Status, StatusRejected)
	}
	if len(verdict.ViolatedConstraints) != 1 || verdict.ViolatedConstraints[0] != "no-delete-without-backup" {
		t.Errorf("violated = %v", verdict.ViolatedConstraints)
	}
	if verdict.AdjustedConfidence != 0 {
		t.Errorf("adjusted confidence = %v, want 0", verdict.AdjustedConfidence)
	}
	if len(verdict.MissingEvidence) != 1 || verdict.MissingEvidence[0] != "backup-confirmation" {
		t.Errorf("missing = %v", verdict.MissingEvidence)
	}
}

func TestConstraintSatisfiedByEvidence(t *testing.T) {
	gate, err := NewGate(testConstraints())
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	claim := Claim{
		Statement:  "delete the staging dataset after verifying 3 snapshots",
		Confidence: 0.9,
	}
	evidence := []Item{{Type: "backup-confirmation", Ref: "snapshot-2026-08-29"}}

	verdict := gate.Validate(claim, evidence)
	if verdict.Status != StatusAccepted {
		t.Fatalf("status = %q, want %q", verdict.Status, StatusAccepted)
	}
}

func TestHedgedClaimLosesConfidence(t *testing.T) {
	gate, err := NewGate(nil)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	// Two hedge terms, no concrete references: 0.8 - 2*0.15 = 0.5
	claim := Claim{
		Statement:  "this probably fixes the bug and might resolve the timeout",
		Confidence: 0.8,
	}
	verdict := gate.Validate(claim, nil)

	if verdict.Status != StatusAccepted {
		t.Fatalf("status = %q, want %q", verdict.Status, StatusAccepted)
	}
	if diff := verdict.AdjustedConfidence - 0.5; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("adjusted confidence = %v, want 0.5", verdict.AdjustedConfidence)
	}
}

func TestHedgedClaimBelowFloorNeedsEvidence(t *testing.T) {
	gate, err := NewGate(nil)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	// 0.7 - 2*0.15 = 0.4, below the 0.5 floor
	claim := Claim{
		Statement:  "this should work and will hopefully fix it",
		Confidence: 0.7,
	}
	verdict := gate.Validate(claim, nil)

	if verdict.Status != StatusNeedsEvidence {
		t.Fatalf("status = %q, want %q", verdict.Status, StatusNeedsEvidence)
	}
	if len(verdict.MissingEvidence) == 0 {
		t.Error("expected missing evidence categories, got none")
	}
}

func TestConcreteReferencesBoost(t *testing.T) {
	gate, err := NewGate(nil)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	// Count, locator, and identifier each boost: 0.6 + 3*0.1 = 0.9
	claim := Claim{
		Statement:  "retries drop from 14 to 2 after the fix in worker/pool.go:88 to `drainQueue`",
		Confidence: 0.6,
	}
	verdict := gate.Validate(claim, nil)

	if verdict.Status != StatusAccepted {
		t.Fatalf("status = %q, want %q", verdict.Status, StatusAccepted)
	}
	if diff := verdict.AdjustedConfidence - 0.9; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("adjusted confidence = %v, want 0.9", verdict.AdjustedConfidence)
	}
	if len(verdict.Notes) != 3 {
		t.Errorf("notes = %v, want 3 concrete-reference notes", verdict.Notes)
	}
}

func TestConfidenceClamped(t *testing.T) {
	gate, err := NewGate(nil)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	claim := Claim{
		Statement:  "resolved 12 failures, see api/router.go:45 and `dispatch`",
		Confidence: 0.95,
	}
	verdict := gate.Validate(claim, nil)
	if verdict.AdjustedConfidence != 1 {
		t.Errorf("adjusted confidence = %v, want clamp to 1", verdict.AdjustedConfidence)
	}

	low := Claim{Statement: "maybe, possibly, probably, likely fine", Confidence: 0.2}
	verdict = gate.Validate(low, nil)
	if verdict.AdjustedConfidence != 0 {
		t.Errorf("adjusted confidence = %v, want clamp to 0", verdict.AdjustedConfidence)
	}
}

func TestRejectionIgnoresConfidence(t *testing.T) {
	gate, err := NewGate(testConstraints())
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	// A perfect-confidence perf claim without measurement still rejects
	claim := Claim{
		Statement:  "the new codec is faster",
		Confidence: 1.0,
	}
	verdict := gate.Validate(claim, nil)
	if verdict.Status != StatusRejected {
		t.Fatalf("status = %q, want %q", verdict.Status, StatusRejected)
	}
}

func TestInvalidConstraintPattern(t *testing.T) {
	_, err := NewGate([]Constraint{{Rule: "bad", Pattern: "(unclosed"}})
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestNormativeShouldNotPenalized(t *testing.T) {
	gate, err := NewGate(nil)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	// Bare "should" states a requirement, not a hedge
	claim := Claim{
		Statement:  "the retry loop should be bounded",
		Confidence: 0.8,
	}
	verdict := gate.Validate(claim, nil)

	if verdict.Status != StatusAccepted {
		t.Fatalf("status = %q, want %q", verdict.Status, StatusAccepted)
	}
	if verdict.AdjustedConfidence != 0.8 {
		t.Errorf("adjusted confidence = %v, want unchanged 0.8", verdict.AdjustedConfidence)
	}
	if len(verdict.Notes) != 0 {
		t.Errorf("notes = %v, want none", verdict.Notes)
	}
}
