// Package domain defines the core domain models for meshview.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
//
// Codes follow the MV-<AREA>-<NNNN> layout. The numeric part mirrors the
// HTTP status family the transport layer maps it to.
type DomainError struct {
	Code    string // Error code (e.g., "MV-SNAP-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
// Two domain errors match when their codes match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Snapshot Errors (SNAP)
// ============================================================================

var (
	// ErrSnapshotNotFound indicates no snapshot matches the query yet.
	// Callers on the read path recover from it by waiting.
	ErrSnapshotNotFound = NewDomainError("MV-SNAP-4040", "snapshot not found")

	// ErrSnapshotConflict indicates a snapshot with the same interval id
	// already exists in the collection.
	ErrSnapshotConflict = NewDomainError("MV-SNAP-4090", "snapshot interval already exists")

	// ErrSnapshotInvalid indicates the snapshot failed validation.
	ErrSnapshotInvalid = NewDomainError("MV-SNAP-4001", "snapshot validation failed")
)

// ============================================================================
// Wait Errors (WAIT)
// ============================================================================

var (
	// ErrWaitTimeout indicates no matching snapshot arrived within the wait bound.
	// It is a normal outcome, not a server failure.
	ErrWaitTimeout = NewDomainError("MV-WAIT-2040", "no data yet")

	// ErrWaitClosed indicates the notification stream shut down while waiting.
	ErrWaitClosed = NewDomainError("MV-WAIT-5030", "notification stream closed")
)

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrTokenMissing indicates the ingest token was not provided.
	ErrTokenMissing = NewDomainError("MV-AUTH-4010", "ingest token not provided")

	// ErrTokenInvalid indicates the ingest token did not verify.
	ErrTokenInvalid = NewDomainError("MV-AUTH-4011", "invalid ingest token")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("MV-SYS-5000", "internal server error")

	// ErrStorageError indicates the storage layer failed (I/O, closed store,
	// corrupt record). It is surfaced immediately and never retried.
	ErrStorageError = NewDomainError("MV-SYS-5001", "storage error")

	// ErrServiceUnavailable indicates the service is temporarily unavailable.
	ErrServiceUnavailable = NewDomainError("MV-SYS-5030", "service unavailable")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("MV-SYS-4000", "bad request")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("MV-SYS-4290", "too many requests")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("MV-ARG-4001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("MV-ARG-4002", "missing required argument")
)
