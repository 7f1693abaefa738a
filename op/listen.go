package op

import (
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/constants"
)

// ListenResult is Listen's typed outcome.
type ListenResult struct {
	Err error
}

// Listen marks fd as a passive socket accepting up to backlog pending
// connections.
type Listen struct {
	FD      int32
	Backlog int
}

func NewListen(fd int32, backlog int) *Listen {
	return &Listen{FD: fd, Backlog: backlog}
}

func (l *Listen) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeListen
	entry.Fd = l.FD
	entry.Offset = uint64(l.Backlog)
}

func (l *Listen) ExecuteBlocking() int64 {
	return rawResult(0, unix.Listen(int(l.FD), l.Backlog))
}

func (l *Listen) Capability() Capability { return Capability{Kind: CapNone} }

func (l *Listen) Finish(raw int64) Result {
	if raw < 0 {
		return ListenResult{Err: errnoOf(raw)}
	}
	return ListenResult{}
}

func (l *Listen) DetachSafe() bool { return true }

func (l *Listen) Kind() constants.OpKind { return constants.OpKindListen }
