package op

import (
	"unsafe"

	"github.com/ehrlich-b/lio/internal/constants"
)

// WritevAtResult mirrors WriteResult but for a gather list of buffers.
type WritevAtResult struct {
	N    int64
	Bufs [][]byte
	Err  error
}

// WritevAt writes a gather list of buffers starting at offset.
type WritevAt struct {
	FD     int32
	Bufs   [][]byte
	Offset int64
}

func NewWritevAt(fd int32, bufs [][]byte, offset int64) *WritevAt {
	return &WritevAt{FD: fd, Bufs: bufs, Offset: offset}
}

func (w *WritevAt) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeWritev
	entry.Fd = w.FD
	entry.Offset = uint64(w.Offset)
	if len(w.Bufs) > 0 {
		entry.Addr = uintptr(unsafe.Pointer(&w.Bufs[0]))
	}
	entry.Len = uint32(len(w.Bufs))
}

func (w *WritevAt) ExecuteBlocking() int64 {
	return pwritev(w.FD, w.Bufs, w.Offset)
}

func (w *WritevAt) Capability() Capability {
	return Capability{Kind: CapFdWrite, FD: w.FD}
}

func (w *WritevAt) Finish(raw int64) Result {
	res := WritevAtResult{Bufs: w.Bufs}
	if raw < 0 {
		res.Err = errnoOf(raw)
	} else {
		res.N = raw
	}
	return res
}

func (w *WritevAt) DetachSafe() bool { return false }

func (w *WritevAt) Kind() constants.OpKind { return constants.OpKindWritevAt }
