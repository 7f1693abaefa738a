package op

import (
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/lio/internal/constants"
)

// SymlinkatResult is Symlinkat's typed outcome.
type SymlinkatResult struct {
	Err error
}

// Symlinkat creates a symlink at linkpath (relative to newdirfd) pointing
// to target.
type Symlinkat struct {
	Target   string
	NewDirFD int32
	LinkPath string
}

func NewSymlinkat(target string, newdirfd int32, linkpath string) *Symlinkat {
	return &Symlinkat{Target: target, NewDirFD: newdirfd, LinkPath: linkpath}
}

func (s *Symlinkat) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeSymlinkAt
	entry.Fd = s.NewDirFD
}

func (s *Symlinkat) ExecuteBlocking() int64 {
	return rawResult(0, unix.Symlinkat(s.Target, int(s.NewDirFD), s.LinkPath))
}

func (s *Symlinkat) Capability() Capability { return Capability{Kind: CapNone} }

func (s *Symlinkat) Finish(raw int64) Result {
	if raw < 0 {
		return SymlinkatResult{Err: errnoOf(raw)}
	}
	return SymlinkatResult{}
}

func (s *Symlinkat) DetachSafe() bool { return false }

func (s *Symlinkat) Kind() constants.OpKind { return constants.OpKindSymlinkat }
