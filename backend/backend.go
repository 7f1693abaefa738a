// Package backend implements the kernel-facing half of the runtime: the
// trio of types (State, Submitter, Driver) every platform backend
// implements, plus the concrete io_uring, pollingv2, and blocking-fallback
// implementations.
package backend

import (
	"time"

	"github.com/ehrlich-b/lio/op"
	"github.com/ehrlich-b/lio/opstore"
)

// SubmitError distinguishes the submission-time failure modes a backend can
// report. NotCompatible tells the runtime driver to reissue the operation on
// the blocking-fallback backend instead of failing the caller outright.
type SubmitError int

const (
	SubmitErrNone SubmitError = iota
	SubmitErrFull
	SubmitErrNotCompatible
	SubmitErrIO
	SubmitErrShutdown
)

func (e SubmitError) Error() string {
	switch e {
	case SubmitErrFull:
		return "backend: submission queue full"
	case SubmitErrNotCompatible:
		return "backend: operation not compatible with this backend"
	case SubmitErrIO:
		return "backend: io error during submission"
	case SubmitErrShutdown:
		return "backend: backend is shutting down"
	default:
		return "backend: no error"
	}
}

// Completion is the backend-neutral (id, raw) pair, the only thing
// propagated up from a kernel ring.
type Completion struct {
	ID  uint64
	Raw int64
}

// Submitter is the caller-facing half of a split backend State. Submit and
// Notify may be called concurrently from arbitrary goroutines: the runtime
// driver calls Submit from whichever goroutine submits an operation and
// Notify from RunTimeout's timer. The raw io_uring backend guards the SQ
// tail bump with an internal mutex for this.
type Submitter interface {
	// Submit attempts to hand op (identified by id) to the kernel. Returns
	// SubmitErrNotCompatible when this backend cannot express op at all
	// (e.g. pollingv2 asked to do something with no FdRead/FdWrite/Timer/None
	// capability it recognizes); the caller is expected to reissue id on the
	// blocking-fallback backend in that case.
	Submit(id uint64, o op.Operation) error
	// Notify wakes a blocked Driver.WaitTimeout call, used for graceful
	// shutdown or out-of-band signaling.
	Notify() error
}

// Driver is the completion-facing half of a split backend State.
type Driver interface {
	// WaitTimeout blocks at most timeout (nil = forever, 0 = non-blocking)
	// collecting completions. A zero-length, non-nil slice is a legitimate
	// result (woken by Notify with nothing ready yet).
	WaitTimeout(store *opstore.Store, timeout *time.Duration) ([]Completion, error)
}

// State is a backend's allocated kernel resources (ring fds, epoll
// instance, notifier pipe, ...). Close releases them; Split yields the
// submitter/driver halves that the runtime hands to different call sites.
type State interface {
	Split() (Submitter, Driver)
	Close() error
}
