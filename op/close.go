package op

import (
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/constants"
)

// CloseResult is Close's typed outcome.
type CloseResult struct {
	Err error
}

// Close closes fd. Resource issues this as its deferred last-ref close.
type Close struct {
	FD int32
}

func NewClose(fd int32) *Close { return &Close{FD: fd} }

func (c *Close) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeClose
	entry.Fd = c.FD
}

func (c *Close) ExecuteBlocking() int64 {
	return rawResult(0, unix.Close(int(c.FD)))
}

func (c *Close) Capability() Capability { return Capability{Kind: CapNone} }

func (c *Close) Finish(raw int64) Result {
	if raw < 0 {
		return CloseResult{Err: errnoOf(raw)}
	}
	return CloseResult{}
}

func (c *Close) DetachSafe() bool { return true }

func (c *Close) Kind() constants.OpKind { return constants.OpKindClose }
