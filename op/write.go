package op

import (
	"unsafe"

	"github.com/ehrlich-b/lio/internal/constants"
)

// WriteResult mirrors ReadResult: the buffer is always returned.
type WriteResult struct {
	N   int64
	Buf []byte
	Err error
}

// Write writes buf at offset to a held fd.
type Write struct {
	FD     int32
	Buf    []byte
	Offset int64
	Link   LinkMode
}

// NewWrite builds a Write operation. len(buf) must fit in a uint32.
func NewWrite(fd int32, buf []byte, offset int64) *Write {
	return &Write{FD: fd, Buf: buf, Offset: offset}
}

// WithLink sets the io_uring link hint for chaining this write ahead of a
// following operation in the same submission batch (e.g. write -> fsync).
// Soft link continues the chain on success only; hard link continues even
// after a failure. Ignored by non-io_uring backends.
func (w *Write) WithLink(hard bool) *Write {
	if hard {
		w.Link = LinkHard
	} else {
		w.Link = LinkSoft
	}
	return w
}

func (w *Write) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeWrite
	entry.Fd = w.FD
	entry.Offset = uint64(w.Offset)
	if len(w.Buf) > 0 {
		entry.Addr = uintptr(unsafe.Pointer(&w.Buf[0]))
	}
	entry.Len = uint32(len(w.Buf))
	applyLinkMode(entry, w.Link)
}

func (w *Write) ExecuteBlocking() int64 {
	return pwrite(w.FD, w.Buf, w.Offset)
}

func (w *Write) Capability() Capability {
	return Capability{Kind: CapFdWrite, FD: w.FD}
}

func (w *Write) Finish(raw int64) Result {
	res := WriteResult{Buf: w.Buf}
	if raw < 0 {
		res.Err = errnoOf(raw)
	} else {
		res.N = raw
	}
	return res
}

func (w *Write) DetachSafe() bool { return false }

func (w *Write) Kind() constants.OpKind { return constants.OpKindWrite }
