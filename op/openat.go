package op

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/constants"
)

// OpenatResult is the typed outcome of an Openat operation.
type OpenatResult struct {
	FD  int32
	Err error
}

// Openat opens pathname relative to dirfd (unix.AT_FDCWD for cwd-relative).
type Openat struct {
	DirFD    int32
	Pathname string
	Flags    int32
	Mode     uint32

	cpath *byte
}

func NewOpenat(dirfd int32, pathname string, flags int32, mode uint32) *Openat {
	return &Openat{DirFD: dirfd, Pathname: pathname, Flags: flags, Mode: mode}
}

func (o *Openat) cPath() *byte {
	if o.cpath == nil {
		b, err := unix.BytePtrFromString(o.Pathname)
		if err != nil {
			// A NUL-containing path is an InvalidInput precondition detectable
			// before submission; ExecuteBlocking surfaces it as EINVAL.
			return nil
		}
		o.cpath = b
	}
	return o.cpath
}

func (o *Openat) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeOpenAt
	entry.Fd = o.DirFD
	entry.OpFlags = uint32(o.Flags)
	// IORING_OP_OPENAT reads the file mode from len, not a dedicated field.
	entry.Len = o.Mode
	if p := o.cPath(); p != nil {
		entry.Addr = uintptr(unsafe.Pointer(p))
	}
}

func (o *Openat) ExecuteBlocking() int64 {
	if o.cPath() == nil {
		return -int64(unix.EINVAL)
	}
	fd, err := unix.Openat(int(o.DirFD), o.Pathname, int(o.Flags), o.Mode)
	return rawResult(fd, err)
}

func (o *Openat) Capability() Capability { return Capability{Kind: CapNone} }

func (o *Openat) Finish(raw int64) Result {
	if raw < 0 {
		return OpenatResult{Err: errnoOf(raw)}
	}
	return OpenatResult{FD: int32(raw)}
}

func (o *Openat) DetachSafe() bool { return false }

func (o *Openat) Kind() constants.OpKind { return constants.OpKindOpenat }
