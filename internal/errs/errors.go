// Package errs holds the runtime's structured error type in a package the
// runtime driver can import directly; it lived at the module root until
// the driver needed to construct it on the Submit/CheckDone path, which
// would have made runtime import lio and lio import runtime.
package errs

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured lio error with operation context and errno
// mapping, following the shape of the runtime's four host platforms.
type Error struct {
	Op    string        // operation that failed, e.g. "submit", "read", "accept"
	ID    uint64        // operation store id, 0 if not applicable
	Code  ErrorCode     // high-level error category
	Errno syscall.Errno // kernel errno, 0 if not applicable
	Msg   string        // human-readable message
	Inner error         // wrapped error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.ID != 0 {
		parts = append(parts, fmt.Sprintf("id=%d", e.ID))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("lio: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("lio: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error { return e.Inner }

// Is provides errors.Is support comparing by ErrorCode.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode represents the error kinds the runtime can report.
type ErrorCode string

const (
	// ErrCodeErrno wraps a negative raw result from a kernel-facing operation.
	ErrCodeErrno ErrorCode = "errno"
	// ErrCodeInvalidInput means no usable address resolved, or operation
	// parameters violated a precondition detectable before submission.
	ErrCodeInvalidInput ErrorCode = "invalid input"
	// ErrCodeFull means a backend submission queue is full; the caller
	// should drive a completion and retry.
	ErrCodeFull ErrorCode = "submission queue full"
	// ErrCodeNotCompatible is internal: the current backend cannot express
	// this operation and the runtime must retry via the blocking fallback.
	// Never surfaced to callers.
	ErrCodeNotCompatible ErrorCode = "backend not compatible"
	// ErrCodeShutdown means the runtime is shutting down and further
	// submissions will not be accepted.
	ErrCodeShutdown ErrorCode = "runtime shutting down"
	// ErrCodeEntryNotFound means check_done was called for an unknown id.
	ErrCodeEntryNotFound ErrorCode = "entry not found"
	// ErrCodeEntryNotCompleted means check_done was called for an id still
	// in the Waiting state.
	ErrCodeEntryNotCompleted ErrorCode = "entry not completed"
)

// Sentinel errors for errors.Is comparisons against the internal plumbing
// (NotCompatible is intentionally unexported-equivalent: it is returned by
// Submitter.Submit but never escapes Driver.Submit to a caller).
var (
	ErrFull              = &Error{Code: ErrCodeFull, Msg: string(ErrCodeFull)}
	ErrNotCompatible     = &Error{Code: ErrCodeNotCompatible, Msg: string(ErrCodeNotCompatible)}
	ErrShutdown          = &Error{Code: ErrCodeShutdown, Msg: string(ErrCodeShutdown)}
	ErrEntryNotFound     = &Error{Code: ErrCodeEntryNotFound, Msg: string(ErrCodeEntryNotFound)}
	ErrEntryNotCompleted = &Error{Code: ErrCodeEntryNotCompleted, Msg: string(ErrCodeEntryNotCompleted)}
	ErrInvalidInput      = &Error{Code: ErrCodeInvalidInput, Msg: string(ErrCodeInvalidInput)}
)

// NewError creates a structured error for a given operation and category.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewErrnoError creates a structured error from a raw negative kernel result.
// raw must be negative (the -errno convention used across the operation
// model); the caller passes -raw as the errno value.
func NewErrnoError(op string, id uint64, errno syscall.Errno) *Error {
	return &Error{Op: op, ID: id, Code: ErrCodeErrno, Errno: errno, Msg: errno.Error()}
}

// WrapError attaches lio context to an arbitrary error, mapping syscall
// errnos to an ErrorCode where recognized.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if le, ok := inner.(*Error); ok {
		return &Error{Op: op, ID: le.ID, Code: le.Code, Errno: le.Errno, Msg: le.Msg, Inner: le.Inner}
	}
	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Code: ErrCodeErrno, Errno: errno, Msg: errno.Error(), Inner: inner}
	}
	return &Error{Op: op, Code: ErrCodeErrno, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is (or wraps) a *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}

// FromRaw converts a raw machine-word result into an error, or nil on
// success. raw >= 0 is success; raw < 0 encodes -errno.
func FromRaw(op string, id uint64, raw int64) error {
	if raw >= 0 {
		return nil
	}
	return NewErrnoError(op, id, syscall.Errno(-raw))
}
