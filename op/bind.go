package op

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/constants"
)

// BindResult is Bind's typed outcome.
type BindResult struct {
	Err error
}

// Bind binds fd to addr.
type Bind struct {
	FD   int32
	Addr unix.Sockaddr

	// rawAddr pins the wire-format encoding of Addr for a native io_uring
	// submission, the same role it plays on Connect.
	rawAddr []byte
}

func NewBind(fd int32, addr unix.Sockaddr) *Bind {
	return &Bind{FD: fd, Addr: addr}
}

// Prepare fills IORING_OP_BIND's SQE: addr points at the raw sockaddr, off
// carries addrlen.
func (b *Bind) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeBind
	entry.Fd = b.FD
	buf, err := encodeSockaddr(b.Addr)
	if err != nil {
		return
	}
	b.rawAddr = buf
	entry.Addr = uintptr(unsafe.Pointer(&b.rawAddr[0]))
	entry.Offset = uint64(len(b.rawAddr))
}

func (b *Bind) ExecuteBlocking() int64 {
	return rawResult(0, unix.Bind(int(b.FD), b.Addr))
}

func (b *Bind) Capability() Capability { return Capability{Kind: CapNone} }

func (b *Bind) Finish(raw int64) Result {
	if raw < 0 {
		return BindResult{Err: errnoOf(raw)}
	}
	return BindResult{}
}

func (b *Bind) DetachSafe() bool { return true }

func (b *Bind) Kind() constants.OpKind { return constants.OpKindBind }
