package op

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/constants"
)

// ConnectResult is Connect's typed outcome.
type ConnectResult struct {
	Err error
}

// Connect connects fd to addr. A non-blocking connect may return
// EINPROGRESS; the pollingv2 backend re-checks after write-readiness by
// calling ExecuteBlocking again, which is why retried is tracked here
// instead of on the backend side: it is this operation's own history.
type Connect struct {
	FD      int32
	Addr    unix.Sockaddr
	retried bool

	// rawAddr pins the wire-format encoding of Addr for the lifetime of a
	// native io_uring submission: the kernel reads straight from this
	// memory when it services the SQE.
	rawAddr []byte
}

func NewConnect(fd int32, addr unix.Sockaddr) *Connect {
	return &Connect{FD: fd, Addr: addr}
}

// Prepare fills IORING_OP_CONNECT's SQE: addr points at the raw sockaddr,
// off carries addrlen (the kernel's addr/off convention for this opcode).
func (c *Connect) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeConnect
	entry.Fd = c.FD
	buf, err := encodeSockaddr(c.Addr)
	if err != nil {
		return
	}
	c.rawAddr = buf
	entry.Addr = uintptr(unsafe.Pointer(&c.rawAddr[0]))
	entry.Offset = uint64(len(c.rawAddr))
}

func (c *Connect) ExecuteBlocking() int64 {
	err := unix.Connect(int(c.FD), c.Addr)
	wasRetried := c.retried
	c.retried = true
	if err == nil {
		return 0
	}
	errno := toErrno(err)
	// A first-call EISCONN is surfaced as an error; only a retry's EISCONN
	// means "the earlier EINPROGRESS attempt has now succeeded".
	if errno == unix.EISCONN && wasRetried {
		return 0
	}
	return -int64(errno)
}

func (c *Connect) Capability() Capability {
	return Capability{Kind: CapFdWrite, FD: c.FD}
}

func (c *Connect) Finish(raw int64) Result {
	if raw < 0 {
		return ConnectResult{Err: errnoOf(raw)}
	}
	return ConnectResult{}
}

func (c *Connect) DetachSafe() bool { return false }

func (c *Connect) Kind() constants.OpKind { return constants.OpKindConnect }
