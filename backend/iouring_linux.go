//go:build linux && !giouring

package backend

import (
	"time"

	"github.com/ehrlich-b/lio/internal/uring"
	"github.com/ehrlich-b/lio/op"
	"github.com/ehrlich-b/lio/opstore"
)

// IOUringState wraps the raw hand-rolled ring in internal/uring, used when
// the giouring build tag is not set. Grounded on ublk-go's
// internal/uring/minimal.go raw-syscall ring, generalized here from
// URING_CMD-only submission to op.Operation.Prepare's full opcode catalog.
type IOUringState struct {
	ring *uring.Ring
}

// NewIOUringState creates a ring with the given SQ depth.
func NewIOUringState(entries uint32) (*IOUringState, error) {
	r, err := uring.NewRing(entries)
	if err != nil {
		return nil, err
	}
	return &IOUringState{ring: r}, nil
}

// NewIOUringStateSQPoll creates a ring with the kernel-side SQPOLL thread
// enabled. idleMillis is how long the kernel thread spins before sleeping
// (IORING_SETUP_SQ_THREAD_IDLE).
func NewIOUringStateSQPoll(entries, idleMillis uint32) (*IOUringState, error) {
	r, err := uring.NewSQPollRing(entries, idleMillis)
	if err != nil {
		return nil, err
	}
	return &IOUringState{ring: r}, nil
}

func (s *IOUringState) Split() (Submitter, Driver) {
	return &iouringSubmitter{s}, &iouringDriver{s}
}

func (s *IOUringState) Close() error {
	return s.ring.Close()
}

// RegisterBuffers registers bufs with the kernel ring so operations can
// reference them by index instead of a raw pointer on every submission.
// bufs are typically drawn from internal/bufpool so the backend isn't
// responsible for their lifetime beyond registration.
func (s *IOUringState) RegisterBuffers(bufs [][]byte) (*BufferGroup, error) {
	n, err := s.ring.RegisterBuffers(bufs)
	if err != nil {
		return nil, err
	}
	return &BufferGroup{bufs: bufs, count: n}, nil
}

// UnregisterBuffers releases a prior RegisterBuffers call.
func (s *IOUringState) UnregisterBuffers() error {
	return s.ring.UnregisterBuffers()
}

// sentinelWakeupID is the reserved user_data value Notify submits a no-op
// SQE under.
const sentinelWakeupID uint64 = ^uint64(0)

type iouringSubmitter struct {
	s *IOUringState
}

// Submit fills a SubmissionEntry via the operation's Prepare and writes it
// into the ring. linked-chain hint (IOSQE_IO_LINK/HARDLINK) is
// already folded into entry.Flags by the operation's Prepare.
func (sub *iouringSubmitter) Submit(id uint64, o op.Operation) error {
	var entry op.SubmissionEntry
	entry.UserData = id
	o.Prepare(&entry)

	ok := sub.s.ring.Submit(entry.Opcode, entry.Flags, entry.Fd, entry.Offset, entry.Addr, entry.Len, entry.OpFlags, entry.BufIndex, entry.UserData)
	if !ok {
		return SubmitErrFull
	}
	// With SQPOLL active, the kernel thread picks up newly queued SQEs on
	// its own; an io_uring_enter call is only needed when it has gone to
	// sleep (IORING_SQ_NEED_WAKEUP). Without SQPOLL, NeedsWakeup always
	// reports true and this degenerates into the unconditional Enter the
	// non-SQPOLL path always did.
	if !sub.s.ring.NeedsWakeup() {
		return nil
	}
	if err := sub.s.ring.Enter(1, 0, false); err != nil {
		return SubmitErrIO
	}
	return nil
}

// Notify submits a reserved no-op SQE whose completion unblocks a driver
// parked in Enter's blocking GETEVENTS wait.
func (sub *iouringSubmitter) Notify() error {
	ok := sub.s.ring.Submit(0 /* IORING_OP_NOP */, 0, -1, 0, 0, 0, 0, 0, sentinelWakeupID)
	if !ok {
		return SubmitErrFull
	}
	return sub.s.ring.Enter(1, 0, false)
}

type iouringDriver struct {
	s *IOUringState
}

// WaitTimeout performs submit_and_wait(n) with n=1 for a blocking wait
// (timeout == nil or > 0) or n=0 for non-blocking (timeout == 0), then
// drains every ready CQE, dropping the sentinel wakeup
// id. io_uring_enter has no native bounded-wait argument in this ring's
// syscall-level usage (no IORING_ENTER_EXT_ARG timeout struct); a positive
// timeout is instead enforced one layer up by runtime.RunTimeout, which
// races this call against a timer that calls Notify() to release it, the
// same notifier path used for graceful shutdown.
func (d *iouringDriver) WaitTimeout(store *opstore.Store, timeout *time.Duration) ([]Completion, error) {
	minComplete := uint32(1)
	blocking := true
	if timeout != nil && *timeout == 0 {
		minComplete = 0
		blocking = false
	}

	if err := d.s.ring.Enter(0, minComplete, blocking); err != nil {
		return nil, err
	}

	var completions []Completion
	for _, c := range d.s.ring.Reap(256) {
		if c.UserData == sentinelWakeupID {
			continue
		}
		completions = append(completions, Completion{ID: c.UserData, Raw: int64(c.Res)})
	}
	return completions, nil
}
