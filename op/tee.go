package op

import (
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/constants"
)

// TeeResult is Tee's typed outcome.
type TeeResult struct {
	N   int64
	Err error
}

// Tee duplicates up to size bytes from fdIn to fdOut without consuming the
// source, the same way the kernel's tee(2) does for two pipe ends.
type Tee struct {
	FDIn  int32
	FDOut int32
	Size  uint32
}

func NewTee(fdIn, fdOut int32, size uint32) *Tee {
	return &Tee{FDIn: fdIn, FDOut: fdOut, Size: size}
}

func (t *Tee) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeTee
	entry.Fd = t.FDIn
	entry.Offset = uint64(t.FDOut)
	entry.Len = t.Size
}

func (t *Tee) ExecuteBlocking() int64 {
	n, err := unix.Tee(int(t.FDIn), int(t.FDOut), int(t.Size), 0)
	return rawResult(n, err)
}

func (t *Tee) Capability() Capability { return Capability{Kind: CapFdRead, FD: t.FDIn} }

func (t *Tee) Finish(raw int64) Result {
	if raw < 0 {
		return TeeResult{Err: errnoOf(raw)}
	}
	return TeeResult{N: raw}
}

func (t *Tee) DetachSafe() bool { return false }

func (t *Tee) Kind() constants.OpKind { return constants.OpKindTee }
