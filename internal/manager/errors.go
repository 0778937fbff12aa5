package manager

import "pacm/internal/pacmerr"

// ErrNotFound constructs a NotFound error for the given package id.
func ErrNotFound(id string) error { return pacmerr.New(pacmerr.NotFound, id, "package not found") }

// IsNotFound reports whether err indicates an unknown package id.
func IsNotFound(err error) bool { return pacmerr.Is(err, pacmerr.NotFound) }

// IsUpToDate reports whether err indicates "nothing to do" from asset
// selection; callers should treat this as a successful no-op.
func IsUpToDate(err error) bool { return pacmerr.Is(err, pacmerr.UpToDate) }

// IsConflictingLock reports whether err indicates the caller's options
// conflict with a persisted version or SDK lock.
func IsConflictingLock(err error) bool { return pacmerr.Is(err, pacmerr.ConflictingLock) }

// IsBusy reports whether err indicates the manager refused an operation
// because tasks are currently active.
func IsBusy(err error) bool { return pacmerr.Is(err, pacmerr.Busy) }

// busyErr constructs the Busy error returned when an operation that
// would race with live install tasks is attempted while any are active.
func busyErr(op string) error {
	return pacmerr.New(pacmerr.Busy, op, "refused: install tasks are active")
}
