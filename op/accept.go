package op

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/constants"
)

// AcceptResult is Accept's typed outcome: a distinct fd from the listener,
// CLOEXEC + non-blocking, plus the decoded peer address.
type AcceptResult struct {
	FD   int32
	Peer unix.Sockaddr
	Err  error
}

// Accept accepts a pending connection on a listening fd.
type Accept struct {
	FD int32

	// peer is populated by ExecuteBlocking (the pollingv2/blocking-fallback
	// paths, which decode the peer address via unix.Accept4 for free).
	peer unix.Sockaddr

	// peerBuf/peerLen back the native io_uring path: the kernel writes the
	// peer sockaddr straight into peerBuf and the actual length into
	// peerLen, both pinned here until Finish reads them.
	peerBuf []byte
	peerLen *uint32
}

func NewAccept(fd int32) *Accept { return &Accept{FD: fd} }

// Prepare fills IORING_OP_ACCEPT's SQE: addr points at a sockaddr_storage
// buffer the kernel fills in, off (a union with addr2 for this opcode)
// points at a socklen_t the kernel updates with the address's actual
// length.
func (a *Accept) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeAccept
	entry.Fd = a.FD
	entry.OpFlags = unix.SOCK_CLOEXEC | unix.SOCK_NONBLOCK

	a.peerBuf = make([]byte, sockaddrStorageSize)
	l := uint32(len(a.peerBuf))
	a.peerLen = &l
	entry.Addr = uintptr(unsafe.Pointer(&a.peerBuf[0]))
	entry.Offset = uint64(uintptr(unsafe.Pointer(a.peerLen)))
}

func (a *Accept) ExecuteBlocking() int64 {
	fd, peer, err := acceptConn(int(a.FD))
	if err != nil {
		return -int64(toErrno(err))
	}
	a.peer = peer
	return int64(fd)
}

func (a *Accept) Capability() Capability {
	return Capability{Kind: CapFdRead, FD: a.FD}
}

func (a *Accept) Finish(raw int64) Result {
	if raw < 0 {
		return AcceptResult{Err: errnoOf(raw)}
	}
	return AcceptResult{FD: int32(raw), Peer: a.decodePeer()}
}

// decodePeer returns the peer address ExecuteBlocking already decoded, or
// (on the native io_uring path, where ExecuteBlocking never ran) decodes it
// from the kernel-written peerBuf/peerLen Prepare set up.
func (a *Accept) decodePeer() unix.Sockaddr {
	if a.peer != nil {
		return a.peer
	}
	if a.peerBuf == nil || a.peerLen == nil {
		return nil
	}
	n := int(*a.peerLen)
	if n <= 0 || n > len(a.peerBuf) {
		return nil
	}
	peer, err := decodeSockaddr(a.peerBuf[:n])
	if err != nil {
		return nil
	}
	return peer
}

func (a *Accept) DetachSafe() bool { return false }

func (a *Accept) Kind() constants.OpKind { return constants.OpKindAccept }
