package op

import (
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/constants"
)

// FtruncateResult is Ftruncate's typed outcome.
type FtruncateResult struct {
	Err error
}

// Ftruncate resizes fd's file to size bytes.
type Ftruncate struct {
	FD   int32
	Size int64
}

func NewFtruncate(fd int32, size int64) *Ftruncate {
	return &Ftruncate{FD: fd, Size: size}
}

func (f *Ftruncate) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeFtruncate
	entry.Fd = f.FD
	entry.Offset = uint64(f.Size)
}

func (f *Ftruncate) ExecuteBlocking() int64 {
	return rawResult(0, unix.Ftruncate(int(f.FD), f.Size))
}

func (f *Ftruncate) Capability() Capability { return Capability{Kind: CapNone} }

func (f *Ftruncate) Finish(raw int64) Result {
	if raw < 0 {
		return FtruncateResult{Err: errnoOf(raw)}
	}
	return FtruncateResult{}
}

func (f *Ftruncate) DetachSafe() bool { return true }

func (f *Ftruncate) Kind() constants.OpKind { return constants.OpKindFtruncate }
