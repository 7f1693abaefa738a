package op

import "github.com/ehrlich-b/lio/internal/constants"

// Nop performs no kernel work; it exists so the submission path, the store,
// and the notifier wiring can be exercised without a real I/O resource.
type Nop struct{}

// NewNop returns a no-op operation.
func NewNop() *Nop { return &Nop{} }

func (n *Nop) Prepare(entry *SubmissionEntry) {
	entry.Opcode = OpcodeNop
}

func (n *Nop) ExecuteBlocking() int64 { return 0 }

func (n *Nop) Capability() Capability { return Capability{Kind: CapNone} }

func (n *Nop) Finish(raw int64) Result {
	if raw < 0 {
		return error(errnoOf(raw))
	}
	return nil
}

func (n *Nop) DetachSafe() bool { return true }

func (n *Nop) Kind() constants.OpKind { return constants.OpKindNop }
