// Package bcerr defines Blue Crab's finite, disjoint error kinds as
// sentinel errors, plus a context-wrapping helper. Every error the
// engine returns wraps exactly one of these sentinels, so callers can
// branch on errors.Is(err, bcerr.ErrNotFound) etc. regardless of the
// operation that produced it.
package bcerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArg covers an empty key or a null value where one is required.
	ErrInvalidArg = errors.New("invalid argument")
	// ErrNotFound covers a missing key, commit, or tag.
	ErrNotFound = errors.New("not found")
	// ErrConflict covers a merge refused without auto-resolve, and a
	// concurrent-writer contract violation (see internal/writeguard).
	ErrConflict = errors.New("conflict")
	// ErrIO covers a filesystem failure during save/load.
	ErrIO = errors.New("io error")
	// ErrCorrupt covers load() finding malformed or truncated bytes.
	ErrCorrupt = errors.New("corrupt data")
	// ErrTypeMismatch covers an unknown or unsupported on-disk type tag.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrUnsupported is reserved for future on-disk format versions.
	ErrUnsupported = errors.New("unsupported")
)

// Wrap formats "<op>: <sentinel>: <cause>" and wraps both sentinel and cause
// with %w, so errors.Is matches either one. cause may be nil, in which case
// only the sentinel is wrapped.
func Wrap(op string, sentinel, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", op, sentinel)
	}
	return fmt.Errorf("%s: %w: %w", op, sentinel, cause)
}

// Is reports whether err ultimately wraps sentinel.
func Is(err, sentinel error) bool {
	return errors.Is(err, sentinel)
}

// Kind classifies err against the known sentinels, returning "" if err
// matches none of them (including err == nil).
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArg):
		return "InvalidArg"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrConflict):
		return "Conflict"
	case errors.Is(err, ErrIO):
		return "Io"
	case errors.Is(err, ErrCorrupt):
		return "Corrupt"
	case errors.Is(err, ErrTypeMismatch):
		return "TypeMismatch"
	case errors.Is(err, ErrUnsupported):
		return "Unsupported"
	default:
		return ""
	}
}
