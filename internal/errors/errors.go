// Package errors defines the stable error taxonomy for the decision engine.
// Every failure mode maps to a code; codes decide recovery, not call sites.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// IOFailure indicates an unreadable or unwritable file.
	// Recovered locally: the unit is marked unknown and processing continues.
	IOFailure ErrorCode = "IO_FAILURE"
	// CacheCorruption indicates the persisted cache could not be read.
	// Recovered by resetting to an empty cache with a warning. Never fatal.
	CacheCorruption ErrorCode = "CACHE_CORRUPTION"
	// AnalyzerFailure indicates the external analyzer errored or timed out.
	// Recovered by falling back to the best lower-tier result or unknown.
	AnalyzerFailure ErrorCode = "ANALYZER_FAILURE"
	// ConstraintViolation indicates an evidence-gate hard reject.
	// Surfaced to the caller with the violated rule. Never silently dropped.
	ConstraintViolation ErrorCode = "CONSTRAINT_VIOLATION"
	// ConfigurationError indicates an invalid threshold or TTL.
	// Fatal at startup only, never at runtime.
	ConfigurationError ErrorCode = "CONFIGURATION_ERROR"
	// InvalidUnit indicates a malformed unit of work
	InvalidUnit ErrorCode = "INVALID_UNIT"
	// Unauthorized indicates a missing or invalid API token
	Unauthorized ErrorCode = "UNAUTHORIZED"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// EngineError carries a stable code alongside a message and optional cause.
type EngineError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new EngineError
func New(code ErrorCode, message string, cause error) *EngineError {
	return &EngineError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *EngineError) WithDetails(details interface{}) *EngineError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, or InternalError if err carries none.
func CodeOf(err error) ErrorCode {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return InternalError
}

// IsFatal reports whether an error code aborts startup.
// Only configuration errors are fatal; everything else degrades.
func IsFatal(code ErrorCode) bool {
	return code == ConfigurationError
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}
