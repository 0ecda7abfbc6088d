// Package errors provides error handling for uniassoc.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Error marks, so a wrapped driver failure can still be classified
//
// Usage:
//
//	// Wrap with context
//	if err := store.Insert(ctx, rec); err != nil {
//	    return errors.Wrap(err, "insert association")
//	}
//
//	// Classify a backend failure without hiding the cause
//	return errors.Mark(errors.Wrap(err, "query associations"), errors.ErrStorageUnavailable)
//
//	// Check errors
//	if errors.Is(err, errors.ErrStorageUnavailable) {
//	    // backend down or timed out
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint        = crdb.WithHint
	WithHintf       = crdb.WithHintf
	WithDetail      = crdb.WithDetail
	WithDetailf     = crdb.WithDetailf
	GetAllHints     = crdb.GetAllHints
	GetAllDetails   = crdb.GetAllDetails
	FlattenHints    = crdb.FlattenHints
	FlattenDetails  = crdb.FlattenDetails
	CombineErrors   = crdb.CombineErrors
	WithSafeDetails = crdb.WithSafeDetails
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// Sentinel errors. Use with errors.Is(); wrap or mark to add context.
var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the arguments were malformed or incomplete
	ErrInvalidRequest = New("invalid request")

	// ErrStorageUnavailable indicates the storage backend failed or timed out
	ErrStorageUnavailable = New("storage unavailable")

	// ErrConflict indicates a uniqueness conflict in the backend
	ErrConflict = New("resource conflict")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsStorageUnavailableError checks if an error is or carries the ErrStorageUnavailable mark
func IsStorageUnavailableError(err error) bool {
	return err != nil && Is(err, ErrStorageUnavailable)
}

// Unavailable marks err as a storage-unavailable failure, keeping the cause
// and adding msg as context. Returns nil for a nil err.
func Unavailable(err error, msg string) error {
	if err == nil {
		return nil
	}
	return Mark(Wrap(err, msg), ErrStorageUnavailable)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrapf(ErrNotFound, format, args...)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrapf(ErrInvalidRequest, format, args...)
}
