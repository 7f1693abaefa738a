package op

import (
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/constants"
)

// ShutdownResult is Shutdown's typed outcome.
type ShutdownResult struct {
	Err error
}

// Shutdown disables further sends/receives/both on a socket per how.
type Shutdown struct {
	FD  int32
	How int // unix.SHUT_RD, SHUT_WR, or SHUT_RDWR
}

func NewShutdown(fd int32, how int) *Shutdown {
	return &Shutdown{FD: fd, How: how}
}

func (s *Shutdown) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeShutdown
	entry.Fd = s.FD
	entry.Offset = uint64(s.How)
}

func (s *Shutdown) ExecuteBlocking() int64 {
	return rawResult(0, unix.Shutdown(int(s.FD), s.How))
}

func (s *Shutdown) Capability() Capability { return Capability{Kind: CapNone} }

func (s *Shutdown) Finish(raw int64) Result {
	if raw < 0 {
		return ShutdownResult{Err: errnoOf(raw)}
	}
	return ShutdownResult{}
}

func (s *Shutdown) DetachSafe() bool { return true }

func (s *Shutdown) Kind() constants.OpKind { return constants.OpKindShutdown }
