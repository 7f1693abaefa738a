package op

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/bufpool"
	"github.com/ehrlich-b/lio/internal/constants"
)

// RecvResult mirrors ReadResult.
type RecvResult struct {
	N   int64
	Buf []byte
	Err error
}

// Recv receives into buf from a connected fd.
type Recv struct {
	FD    int32
	Buf   []byte
	Flags int
}

func NewRecv(fd int32, buf []byte, flags int) *Recv {
	return &Recv{FD: fd, Buf: buf, Flags: flags}
}

// NewRecvPooled mirrors NewReadPooled: draws its scratch buffer from
// internal/bufpool rather than requiring the caller to size and allocate
// one. The caller owns RecvResult.Buf afterward and should bufpool.Put it
// back when done.
func NewRecvPooled(fd int32, size uint32, flags int) *Recv {
	if size == 0 {
		size = constants.DefaultReadBufferSize
	}
	return &Recv{FD: fd, Buf: bufpool.Get(size), Flags: flags}
}

func (r *Recv) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeRecv
	entry.Fd = r.FD
	if len(r.Buf) > 0 {
		entry.Addr = uintptr(unsafe.Pointer(&r.Buf[0]))
	}
	entry.Len = uint32(len(r.Buf))
	entry.OpFlags = uint32(r.Flags)
}

func (r *Recv) ExecuteBlocking() int64 {
	n, _, err := unix.Recvfrom(int(r.FD), r.Buf, r.Flags)
	return rawResult(n, err)
}

func (r *Recv) Capability() Capability {
	return Capability{Kind: CapFdRead, FD: r.FD}
}

func (r *Recv) Finish(raw int64) Result {
	res := RecvResult{Buf: r.Buf}
	if raw < 0 {
		res.Err = errnoOf(raw)
	} else {
		res.N = raw
	}
	return res
}

func (r *Recv) DetachSafe() bool { return false }

func (r *Recv) Kind() constants.OpKind { return constants.OpKindRecv }
