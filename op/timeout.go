package op

import (
	"time"
	"unsafe"

	"github.com/ehrlich-b/lio/internal/constants"
)

// TimeoutResult is Timeout's typed outcome. An expired timeout completes
// as success: Finish maps the -ETIME an io_uring timeout reports to a nil
// Err, and the raw 0 of the readiness and blocking paths is success too.
type TimeoutResult struct {
	Err error
}

// kernelTimespec mirrors the kernel's __kernel_timespec: always two 64-bit
// fields regardless of host word size, which is what IORING_OP_TIMEOUT's
// addr must point at.
type kernelTimespec struct {
	Sec  int64
	Nsec int64
}

// Timeout fires after duration elapses. On io_uring it is a native Timeout
// SQE; on the pollingv2 adapter it maps to EVFILT_TIMER (kqueue) or a
// one-shot timerfd (epoll), via the platform-specific newTimerFD helper in
// timerfd_linux.go / timerfd_other.go.
type Timeout struct {
	Duration time.Duration

	timerFD int32 // valid on Linux readiness backends only; 0 otherwise

	// ts pins the kernel timespec encoding of Duration for a native
	// io_uring submission.
	ts kernelTimespec
}

func NewTimeout(d time.Duration) *Timeout {
	t := &Timeout{Duration: d}
	t.timerFD = newTimerFD(d)
	return t
}

// Prepare fills IORING_OP_TIMEOUT's SQE: addr points at a __kernel_timespec
// encoding Duration, off is the completion count (0: complete purely on
// elapsed time, no additional CQE count condition).
func (t *Timeout) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeTimeout
	t.ts = kernelTimespec{
		Sec:  int64(t.Duration / time.Second),
		Nsec: int64(t.Duration % time.Second),
	}
	entry.Addr = uintptr(unsafe.Pointer(&t.ts))
	entry.Offset = 0
}

func (t *Timeout) ExecuteBlocking() int64 {
	time.Sleep(t.Duration)
	return 0
}

func (t *Timeout) Capability() Capability {
	return Capability{Kind: CapTimer, FD: t.timerFD, Dur: t.Duration.Nanoseconds()}
}

func (t *Timeout) Finish(raw int64) Result {
	closeTimerFD(t.timerFD)
	if IsTimeExpired(raw) {
		return TimeoutResult{}
	}
	if raw < 0 {
		return TimeoutResult{Err: errnoOf(raw)}
	}
	return TimeoutResult{}
}

func (t *Timeout) DetachSafe() bool { return true }

func (t *Timeout) Kind() constants.OpKind { return constants.OpKindTimeout }
