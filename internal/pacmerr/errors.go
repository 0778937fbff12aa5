// Package pacmerr defines the error-kind taxonomy shared by the package
// model, install task, and manager layers so that callers (HTTP handlers,
// the CLI) can map a failure to a response without string matching.
package pacmerr

import (
	"errors"
	"fmt"
)

// Kind names a class of failure, not a concrete type.
type Kind string

const (
	NotFound         Kind = "not_found"
	InvalidPackage   Kind = "invalid_package"
	ConflictingLock  Kind = "conflicting_lock"
	UpToDate         Kind = "up_to_date"
	DownloadFailed   Kind = "download_failed"
	ChecksumMismatch Kind = "checksum_mismatch"
	ExtractFailed    Kind = "extract_failed"
	FinalizeBusy     Kind = "finalize_busy"
	FinalizeFailed   Kind = "finalize_failed"
	UninstallPartial Kind = "uninstall_partial"
	Busy             Kind = "busy"
)

// Error carries a Kind alongside the package id it concerns and an
// optional wrapped cause.
type Error struct {
	Kind Kind
	ID   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.ID != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.ID, e.Msg, e.Err)
		}
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.ID, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error with no wrapped cause.
func New(kind Kind, id, msg string) *Error {
	return &Error{Kind: kind, ID: id, Msg: msg}
}

// Wrap constructs an Error carrying cause as the wrapped error.
func Wrap(kind Kind, id, msg string, cause error) *Error {
	return &Error{Kind: kind, ID: id, Msg: msg, Err: cause}
}

// Is reports whether err (or anything it wraps) is a *Error of kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
