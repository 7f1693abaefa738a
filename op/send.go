package op

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/constants"
)

// SendResult mirrors WriteResult.
type SendResult struct {
	N   int64
	Buf []byte
	Err error
}

// Send sends buf on a connected fd.
type Send struct {
	FD    int32
	Buf   []byte
	Flags int
}

func NewSend(fd int32, buf []byte, flags int) *Send {
	return &Send{FD: fd, Buf: buf, Flags: flags}
}

func (s *Send) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeSend
	entry.Fd = s.FD
	if len(s.Buf) > 0 {
		entry.Addr = uintptr(unsafe.Pointer(&s.Buf[0]))
	}
	entry.Len = uint32(len(s.Buf))
	entry.OpFlags = uint32(s.Flags | noSignalFlag)
}

func (s *Send) ExecuteBlocking() int64 {
	n, err := unix.Send(int(s.FD), s.Buf, s.Flags|noSignalFlag)
	return rawResult(n, err)
}

func (s *Send) Capability() Capability {
	return Capability{Kind: CapFdWrite, FD: s.FD}
}

func (s *Send) Finish(raw int64) Result {
	res := SendResult{Buf: s.Buf}
	if raw < 0 {
		res.Err = errnoOf(raw)
	} else {
		res.N = raw
	}
	return res
}

func (s *Send) DetachSafe() bool { return false }

func (s *Send) Kind() constants.OpKind { return constants.OpKindSend }
