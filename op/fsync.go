package op

import (
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/constants"
)

// FsyncResult is Fsync's typed outcome.
type FsyncResult struct {
	Err error
}

// Fsync flushes fd's data (and, unless DataOnly, its metadata) to storage.
type Fsync struct {
	FD       int32
	DataOnly bool // fdatasync-equivalent
	Link     LinkMode
}

func NewFsync(fd int32) *Fsync { return &Fsync{FD: fd} }

// WithLink sets the io_uring link hint, matching Write.WithLink; a caller
// chains write->fsync by linking the write ahead of this fsync.
func (f *Fsync) WithLink(hard bool) *Fsync {
	if hard {
		f.Link = LinkHard
	} else {
		f.Link = LinkSoft
	}
	return f
}

func (f *Fsync) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeFsync
	entry.Fd = f.FD
	if f.DataOnly {
		entry.OpFlags = 1 // IORING_FSYNC_DATASYNC
	}
	applyLinkMode(entry, f.Link)
}

func (f *Fsync) ExecuteBlocking() int64 {
	if f.DataOnly {
		return rawResult(0, unix.Fdatasync(int(f.FD)))
	}
	return rawResult(0, unix.Fsync(int(f.FD)))
}

func (f *Fsync) Capability() Capability { return Capability{Kind: CapNone} }

func (f *Fsync) Finish(raw int64) Result {
	if raw < 0 {
		return FsyncResult{Err: errnoOf(raw)}
	}
	return FsyncResult{}
}

func (f *Fsync) DetachSafe() bool { return true }

func (f *Fsync) Kind() constants.OpKind { return constants.OpKindFsync }
