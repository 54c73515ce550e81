package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestEngineErrorFormat(t *testing.T) {
	tests := []struct {
		name    string
		err     *EngineError
		wantSub []string
	}{
		{
			name:    "without cause",
			err:     New(CacheCorruption, "cache file unreadable", nil),
			wantSub: []string{"CACHE_CORRUPTION", "cache file unreadable"},
		},
		{
			name:    "with cause",
			err:     New(IOFailure, "read failed", errors.New("permission denied")),
			wantSub: []string{"IO_FAILURE", "read failed", "permission denied"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, sub := range tt.wantSub {
				if !strings.Contains(got, sub) {
					t.Errorf("Error() = %q, want it to contain %q", got, sub)
				}
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := New(IOFailure, "write failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(AnalyzerFailure, "timeout", nil)); got != AnalyzerFailure {
		t.Errorf("CodeOf = %q, want %q", got, AnalyzerFailure)
	}

	wrapped := fmt.Errorf("outer: %w", New(ConstraintViolation, "hard reject", nil))
	if got := CodeOf(wrapped); got != ConstraintViolation {
		t.Errorf("CodeOf through wrap = %q, want %q", got, ConstraintViolation)
	}

	if got := CodeOf(errors.New("plain")); got != InternalError {
		t.Errorf("CodeOf plain error = %q, want %q", got, InternalError)
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(ConfigurationError) {
		t.Error("configuration errors must be fatal at startup")
	}
	for _, code := range []ErrorCode{IOFailure, CacheCorruption, AnalyzerFailure, ConstraintViolation} {
		if IsFatal(code) {
			t.Errorf("code %s must not be fatal", code)
		}
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", New(CacheCorruption, "bad header", nil))
	if !HasCode(err, CacheCorruption) {
		t.Error("HasCode should match through wrapping")
	}
	if HasCode(err, IOFailure) {
		t.Error("HasCode matched the wrong code")
	}
}
