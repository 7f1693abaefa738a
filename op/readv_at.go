package op

import (
	"unsafe"

	"github.com/ehrlich-b/lio/internal/constants"
)

// ReadvAtResult mirrors ReadResult but for a scatter list of buffers.
type ReadvAtResult struct {
	N    int64
	Bufs [][]byte
	Err  error
}

// ReadvAt reads into a scatter list of buffers starting at offset.
type ReadvAt struct {
	FD     int32
	Bufs   [][]byte
	Offset int64
}

func NewReadvAt(fd int32, bufs [][]byte, offset int64) *ReadvAt {
	return &ReadvAt{FD: fd, Bufs: bufs, Offset: offset}
}

func (r *ReadvAt) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeReadv
	entry.Fd = r.FD
	entry.Offset = uint64(r.Offset)
	if len(r.Bufs) > 0 {
		entry.Addr = uintptr(unsafe.Pointer(&r.Bufs[0]))
	}
	entry.Len = uint32(len(r.Bufs))
}

func (r *ReadvAt) ExecuteBlocking() int64 {
	return preadv(r.FD, r.Bufs, r.Offset)
}

func (r *ReadvAt) Capability() Capability {
	return Capability{Kind: CapFdRead, FD: r.FD}
}

func (r *ReadvAt) Finish(raw int64) Result {
	res := ReadvAtResult{Bufs: r.Bufs}
	if raw < 0 {
		res.Err = errnoOf(raw)
	} else {
		res.N = raw
	}
	return res
}

func (r *ReadvAt) DetachSafe() bool { return false }

func (r *ReadvAt) Kind() constants.OpKind { return constants.OpKindReadvAt }
