package op

import (
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/constants"
)

// SocketResult is Socket's typed outcome.
type SocketResult struct {
	FD  int32
	Err error
}

// Socket creates a new socket of the given domain/type/protocol. Per
// socket-create semantics, the returned fd is always CLOEXEC and
// non-blocking, and SO_REUSEADDR is set before the caller sees it.
type Socket struct {
	Domain   int
	Type     int
	Protocol int
}

func NewSocket(domain, typ, protocol int) *Socket {
	return &Socket{Domain: domain, Type: typ, Protocol: protocol}
}

func (s *Socket) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeSocket
	entry.Fd = int32(s.Domain)
	entry.Offset = uint64(s.Type)
	entry.OpFlags = uint32(s.Protocol)
}

func (s *Socket) ExecuteBlocking() int64 {
	fd, err := createSocket(s.Domain, s.Type, s.Protocol)
	if err != nil {
		return -int64(toErrno(err))
	}
	if err := finishSocketSetup(fd); err != nil {
		unix.Close(fd)
		return -int64(toErrno(err))
	}
	return int64(fd)
}

func (s *Socket) Capability() Capability { return Capability{Kind: CapNone} }

func (s *Socket) Finish(raw int64) Result {
	if raw < 0 {
		return SocketResult{Err: errnoOf(raw)}
	}
	return SocketResult{FD: int32(raw)}
}

func (s *Socket) DetachSafe() bool { return false }

func toErrno(err error) unix.Errno {
	if errno, ok := err.(unix.Errno); ok {
		return errno
	}
	return unix.EIO
}

// finishSocketSetup applies SO_REUSEADDR and, on BSD-family platforms,
// SO_NOSIGPIPE. Linux send paths use MSG_NOSIGNAL instead (see send.go).
func finishSocketSetup(fd int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return err
	}
	return setNoSigpipe(fd)
}

func (s *Socket) Kind() constants.OpKind { return constants.OpKindSocket }
