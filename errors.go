// Package lio is an asynchronous I/O runtime exposing kernel-level
// completion-based I/O (io_uring, kqueue/epoll via a readiness adapter,
// IOCP) behind a single uniform, allocation-disciplined operation model.
package lio

import (
	"syscall"

	"github.com/ehrlich-b/lio/internal/errs"
)

// Error represents a structured lio error with operation context and errno
// mapping. Alias of errs.Error, which the runtime driver also constructs
// directly on the Submit/CheckDone path.
type Error = errs.Error

// ErrorCode represents the error kinds the runtime can report.
type ErrorCode = errs.ErrorCode

const (
	ErrCodeErrno             = errs.ErrCodeErrno
	ErrCodeInvalidInput      = errs.ErrCodeInvalidInput
	ErrCodeFull              = errs.ErrCodeFull
	ErrCodeNotCompatible     = errs.ErrCodeNotCompatible
	ErrCodeShutdown          = errs.ErrCodeShutdown
	ErrCodeEntryNotFound     = errs.ErrCodeEntryNotFound
	ErrCodeEntryNotCompleted = errs.ErrCodeEntryNotCompleted
)

// Sentinel errors for errors.Is comparisons against the internal plumbing.
var (
	ErrFull              = errs.ErrFull
	ErrNotCompatible     = errs.ErrNotCompatible
	ErrShutdown          = errs.ErrShutdown
	ErrEntryNotFound     = errs.ErrEntryNotFound
	ErrEntryNotCompleted = errs.ErrEntryNotCompleted
	ErrInvalidInput      = errs.ErrInvalidInput
)

// NewError creates a structured error for a given operation and category.
func NewError(op string, code ErrorCode, msg string) *Error { return errs.NewError(op, code, msg) }

// NewErrnoError creates a structured error from a raw negative kernel result.
func NewErrnoError(op string, id uint64, errno syscall.Errno) *Error {
	return errs.NewErrnoError(op, id, errno)
}

// WrapError attaches lio context to an arbitrary error, mapping syscall
// errnos to an ErrorCode where recognized.
func WrapError(op string, inner error) *Error { return errs.WrapError(op, inner) }

// IsCode reports whether err is (or wraps) a *Error with the given code.
func IsCode(err error, code ErrorCode) bool { return errs.IsCode(err, code) }

// FromRaw converts a raw machine-word result into an error, or nil on
// success. raw >= 0 is success; raw < 0 encodes -errno.
func FromRaw(op string, id uint64, raw int64) error { return errs.FromRaw(op, id, raw) }
