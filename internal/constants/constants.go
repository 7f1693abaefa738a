// Package constants holds tunable defaults shared across the runtime,
// backend, and operation-store packages.
package constants

import "time"

// Ring and queue sizing defaults.
const (
	// DefaultRingEntries is the default number of submission-queue slots
	// requested from an io_uring-capable backend.
	DefaultRingEntries = 128

	// DefaultOpStoreCapacity is the initial slab size for a new OpStore.
	DefaultOpStoreCapacity = 256

	// DefaultBlockingWorkers is the size of the always-present blocking
	// fallback worker pool.
	DefaultBlockingWorkers = 4

	// DefaultPollEvents is the batch size used for a single epoll_wait /
	// kevent call.
	DefaultPollEvents = 64
)

// Notification sentinel reserved out of the id space so a backend can
// distinguish its own wakeup submission from a real operation completion.
const NotifySentinelID uint64 = ^uint64(0)

// IO sizing.
const (
	// DefaultReadBufferSize is the buffer size op.NewReadPooled and
	// op.NewRecvPooled draw from internal/bufpool when given size 0.
	DefaultReadBufferSize = 64 * 1024
)

// Shutdown and polling timing.
const (
	// ShutdownDrainDelay is the grace period after canceling worker
	// goroutines before declaring them stopped.
	ShutdownDrainDelay = 10 * time.Millisecond
)

// OpKind identifies an operation's catalog entry for metrics and dispatch
// purposes. Shared between the op and top-level packages so metrics can
// key counters by kind without creating an import cycle.
type OpKind int

const (
	OpKindNop OpKind = iota
	OpKindOpenat
	OpKindClose
	OpKindRead
	OpKindWrite
	OpKindReadvAt
	OpKindWritevAt
	OpKindFsync
	OpKindFtruncate
	OpKindSocket
	OpKindBind
	OpKindListen
	OpKindAccept
	OpKindConnect
	OpKindSend
	OpKindRecv
	OpKindShutdown
	OpKindLinkat
	OpKindSymlinkat
	OpKindUnlinkat
	OpKindTee
	OpKindTimeout

	NumOpKinds
)

// String returns the catalog name used in log lines and metric labels.
func (k OpKind) String() string {
	switch k {
	case OpKindNop:
		return "nop"
	case OpKindOpenat:
		return "openat"
	case OpKindClose:
		return "close"
	case OpKindRead:
		return "read"
	case OpKindWrite:
		return "write"
	case OpKindReadvAt:
		return "readv_at"
	case OpKindWritevAt:
		return "writev_at"
	case OpKindFsync:
		return "fsync"
	case OpKindFtruncate:
		return "ftruncate"
	case OpKindSocket:
		return "socket"
	case OpKindBind:
		return "bind"
	case OpKindListen:
		return "listen"
	case OpKindAccept:
		return "accept"
	case OpKindConnect:
		return "connect"
	case OpKindSend:
		return "send"
	case OpKindRecv:
		return "recv"
	case OpKindShutdown:
		return "shutdown"
	case OpKindLinkat:
		return "linkat"
	case OpKindSymlinkat:
		return "symlinkat"
	case OpKindUnlinkat:
		return "unlinkat"
	case OpKindTee:
		return "tee"
	case OpKindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}
