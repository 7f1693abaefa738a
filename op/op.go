// Package op defines the operation-trait contract shared by every backend:
// how to prepare a kernel submission, how to run an operation synchronously,
// how to classify its readiness capability, and how to turn a raw kernel
// result into a typed value.
package op

import (
	"syscall"

	"github.com/ehrlich-b/lio/internal/constants"
)

// SubmissionEntry is the backend-neutral shape of a kernel submission.
// The io_uring backend marshals it into a raw SQE; other backends ignore
// it and call ExecuteBlocking directly.
type SubmissionEntry struct {
	Opcode   uint8
	Flags    uint8
	Fd       int32
	Offset   uint64
	Addr     uintptr // pointer to a buffer, path, or sockaddr
	Len      uint32
	OpFlags  uint32
	BufIndex uint16
	UserData uint64

	// Addr2/Len2 are a second pointer/length slot. No catalog operation
	// sets them, and the io_uring backends do not copy them into the SQE.
	Addr2 uintptr
	Len2  uint32
}

// LinkMode is the optional per-submit hint for io_uring SQE chaining.
type LinkMode uint8

const (
	LinkNone LinkMode = iota
	LinkSoft          // IOSQE_IO_LINK
	LinkHard          // IOSQE_IO_HARDLINK
)

// CapabilityKind classifies what a readiness backend must wait on before
// it may call ExecuteBlocking.
type CapabilityKind int

const (
	CapNone CapabilityKind = iota
	CapFdRead
	CapFdWrite
	CapTimer
)

// Capability is the tagged union readiness adapter switches on.
type Capability struct {
	Kind CapabilityKind
	FD   int32
	Dur  int64 // nanoseconds, valid when Kind == CapTimer
}

// Result is the erased, typed outcome an operation's Finish returns. The
// store never inspects it; only the awaiting handle, which knows the
// concrete operation type, downcasts it.
type Result any

// Operation is the type-erased contract every catalog entry satisfies.
type Operation interface {
	// Prepare populates entry for a completion-model backend (io_uring,
	// IOCP). Readiness backends never call this.
	Prepare(entry *SubmissionEntry)

	// ExecuteBlocking runs the operation synchronously and returns the raw
	// kernel convention: >= 0 is the success value, < 0 is -errno.
	ExecuteBlocking() int64

	// Capability reports what a readiness backend must wait on.
	Capability() Capability

	// Finish consumes the operation and produces its typed result. raw is
	// the value recorded in the slot by the completing backend. Finish
	// fires exactly once.
	Finish(raw int64) Result

	// DetachSafe reports whether an awaiting handle may be dropped before
	// completion without leaving a user buffer pinned past its lifetime.
	DetachSafe() bool

	// Kind identifies this operation's catalog entry for metrics and
	// logging, shared with the top-level package via internal/constants to
	// avoid an import cycle back into op.
	Kind() constants.OpKind
}

// errnoOf extracts a syscall.Errno from a raw negative result.
func errnoOf(raw int64) syscall.Errno {
	if raw >= 0 {
		return 0
	}
	return syscall.Errno(-raw)
}

// IsTemporary reports whether raw encodes EAGAIN/EWOULDBLOCK/EINPROGRESS,
// the three "not ready yet" outcomes the pollingv2 adapter re-arms on.
func IsTemporary(raw int64) bool {
	if raw >= 0 {
		return false
	}
	errno := errnoOf(raw)
	return errno == syscall.EAGAIN || errno == syscall.EWOULDBLOCK || errno == syscall.EINPROGRESS
}

// IsTimeExpired reports whether raw encodes ETIME, the outcome an io_uring
// timeout operation completes with when its duration expires.
func IsTimeExpired(raw int64) bool {
	return raw < 0 && errnoOf(raw) == syscall.ETIME
}
