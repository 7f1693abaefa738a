package op

import (
	"unsafe"

	"github.com/ehrlich-b/lio/internal/bufpool"
	"github.com/ehrlich-b/lio/internal/constants"
)

// ReadResult is Read's typed outcome: the buffer is always returned, even on
// error, so callers can reuse it without reallocating.
type ReadResult struct {
	N   int64
	Buf []byte
	Err error
}

// Read reads into buf at offset, starting from a held fd.
type Read struct {
	FD     int32
	Buf    []byte
	Offset int64
}

// NewRead builds a Read operation. Passing offset < 0 is a caller error
// detectable before submission (EINVAL precondition for Read).
func NewRead(fd int32, buf []byte, offset int64) *Read {
	return &Read{FD: fd, Buf: buf, Offset: offset}
}

// NewReadPooled builds a Read whose buffer is drawn from internal/bufpool
// instead of a caller-supplied slice, for callers that don't want to size
// and allocate their own scratch buffer. size defaults to
// constants.DefaultReadBufferSize when 0. The caller owns the returned
// ReadResult.Buf afterward and should bufpool.Put it back when done.
func NewReadPooled(fd int32, size uint32, offset int64) *Read {
	if size == 0 {
		size = constants.DefaultReadBufferSize
	}
	return &Read{FD: fd, Buf: bufpool.Get(size), Offset: offset}
}

func (r *Read) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeRead
	entry.Fd = r.FD
	entry.Offset = uint64(r.Offset)
	if len(r.Buf) > 0 {
		entry.Addr = uintptr(unsafe.Pointer(&r.Buf[0]))
	}
	entry.Len = uint32(len(r.Buf))
}

func (r *Read) ExecuteBlocking() int64 {
	return pread(r.FD, r.Buf, r.Offset)
}

func (r *Read) Capability() Capability {
	return Capability{Kind: CapFdRead, FD: r.FD}
}

func (r *Read) Finish(raw int64) Result {
	res := ReadResult{Buf: r.Buf}
	if raw < 0 {
		res.Err = errnoOf(raw)
	} else {
		res.N = raw
	}
	return res
}

func (r *Read) DetachSafe() bool { return false }

func (r *Read) Kind() constants.OpKind { return constants.OpKindRead }
