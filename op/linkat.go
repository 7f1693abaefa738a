package op

import (
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/constants"
)

// LinkatResult is Linkat's typed outcome.
type LinkatResult struct {
	Err error
}

// Linkat creates a hard link from oldpath (relative to olddirfd) to newpath
// (relative to newdirfd).
type Linkat struct {
	OldDirFD int32
	OldPath  string
	NewDirFD int32
	NewPath  string
	Flags    int
}

func NewLinkat(olddirfd int32, oldpath string, newdirfd int32, newpath string, flags int) *Linkat {
	return &Linkat{OldDirFD: olddirfd, OldPath: oldpath, NewDirFD: newdirfd, NewPath: newpath, Flags: flags}
}

func (l *Linkat) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeLinkAt
	entry.Fd = l.OldDirFD
	entry.OpFlags = uint32(l.Flags)
}

func (l *Linkat) ExecuteBlocking() int64 {
	return rawResult(0, unix.Linkat(int(l.OldDirFD), l.OldPath, int(l.NewDirFD), l.NewPath, l.Flags))
}

func (l *Linkat) Capability() Capability { return Capability{Kind: CapNone} }

func (l *Linkat) Finish(raw int64) Result {
	if raw < 0 {
		return LinkatResult{Err: errnoOf(raw)}
	}
	return LinkatResult{}
}

func (l *Linkat) DetachSafe() bool { return false }

func (l *Linkat) Kind() constants.OpKind { return constants.OpKindLinkat }
