package op

import (
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/constants"
)

// UnlinkatResult is Unlinkat's typed outcome.
type UnlinkatResult struct {
	Err error
}

// Unlinkat removes pathname relative to dirfd. Pass unix.AT_REMOVEDIR in
// flags to remove an empty directory instead of a file.
type Unlinkat struct {
	DirFD    int32
	Pathname string
	Flags    int
}

func NewUnlinkat(dirfd int32, pathname string, flags int) *Unlinkat {
	return &Unlinkat{DirFD: dirfd, Pathname: pathname, Flags: flags}
}

func (u *Unlinkat) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeUnlinkAt
	entry.Fd = u.DirFD
	entry.OpFlags = uint32(u.Flags)
}

func (u *Unlinkat) ExecuteBlocking() int64 {
	return rawResult(0, unix.Unlinkat(int(u.DirFD), u.Pathname, u.Flags))
}

func (u *Unlinkat) Capability() Capability { return Capability{Kind: CapNone} }

func (u *Unlinkat) Finish(raw int64) Result {
	if raw < 0 {
		return UnlinkatResult{Err: errnoOf(raw)}
	}
	return UnlinkatResult{}
}

func (u *Unlinkat) DetachSafe() bool { return false }

func (u *Unlinkat) Kind() constants.OpKind { return constants.OpKindUnlinkat }
