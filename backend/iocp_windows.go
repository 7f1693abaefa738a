//go:build windows

package backend

import (
	"sync"
	"time"

	"github.com/ehrlich-b/lio/op"
	"github.com/ehrlich-b/lio/opstore"
	"golang.org/x/sys/windows"
)

// notifyKey is the reserved IOCP completion key GetQueuedCompletionStatus
// reports for an out-of-band wakeup, posted by PostQueuedCompletionStatus
// with a nil OVERLAPPED.
const notifyKey = ^uint32(0)

// IOCPState is the Windows completion port backend. Grounded on the reactor
// shape in the momentics-hioload-ws and SeleniaProject-Orizon IOCP examples
// (CreateIoCompletionPort/GetQueuedCompletionStatus, a completion-key →
// callback map) and on original_source/lio/src/backends/impls/iocp.rs for
// the id-as-key convention and synchronous-completion posting rule.
type IOCPState struct {
	port windows.Handle

	mu      sync.Mutex
	pending map[uint64]op.Operation
}

// NewIOCPState creates a fresh completion port.
func NewIOCPState() (*IOCPState, error) {
	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	return &IOCPState{port: port, pending: make(map[uint64]op.Operation)}, nil
}

func (s *IOCPState) Split() (Submitter, Driver) {
	return &iocpSubmitter{s}, &iocpDriver{s}
}

func (s *IOCPState) Close() error {
	return windows.CloseHandle(s.port)
}

type iocpSubmitter struct {
	s *IOCPState
}

// Submit associates op's fd/handle with the completion port under a key
// equal to its id, then runs it. Operations with no kernel-async path on
// Windows (or those this simplified backend does not special-case)
// execute synchronously, and a matching completion is posted immediately
// so the caller still sees a normal (id, raw) pair out of WaitTimeout.
func (sub *iocpSubmitter) Submit(id uint64, o op.Operation) error {
	cap := o.Capability()
	if cap.Kind == op.CapFdRead || cap.Kind == op.CapFdWrite {
		handle := windows.Handle(cap.FD)
		if _, err := windows.CreateIoCompletionPort(handle, sub.s.port, uint64(uint32(id)), 0); err != nil {
			return SubmitErrIO
		}
	}

	sub.s.mu.Lock()
	sub.s.pending[id] = o
	sub.s.mu.Unlock()

	raw := o.ExecuteBlocking()
	return sub.postCompletion(id, raw)
}

func (sub *iocpSubmitter) postCompletion(id uint64, raw int64) error {
	var bytes uint32
	if raw >= 0 {
		bytes = uint32(raw)
	}
	return windows.PostQueuedCompletionStatus(sub.s.port, bytes, uint32(id), nil)
}

// Notify posts a zero-byte completion under the reserved notifyKey to
// release a blocked GetQueuedCompletionStatus call.
func (sub *iocpSubmitter) Notify() error {
	return windows.PostQueuedCompletionStatus(sub.s.port, 0, notifyKey, nil)
}

type iocpDriver struct {
	s *IOCPState
}

func msFromDuration(d *time.Duration) uint32 {
	if d == nil {
		return windows.INFINITE
	}
	ms := d.Milliseconds()
	if ms < 0 {
		return 0
	}
	if ms > int64(windows.INFINITE-1) {
		return windows.INFINITE - 1
	}
	return uint32(ms)
}

// WaitTimeout drains ready completions from the port, translating
// (key, bytes, error) into (id, raw) where success encodes bytes as
// non-negative and failure encodes -error_code.
func (d *iocpDriver) WaitTimeout(store *opstore.Store, timeout *time.Duration) ([]Completion, error) {
	var completions []Completion
	timeoutMs := msFromDuration(timeout)

	for {
		var bytes uint32
		var key uint32
		var overlapped *windows.Overlapped

		err := windows.GetQueuedCompletionStatus(d.s.port, &bytes, &key, &overlapped, timeoutMs)
		if err != nil {
			if err == windows.WAIT_TIMEOUT {
				return completions, nil
			}
			return completions, err
		}

		if key == notifyKey {
			continue
		}

		id := uint64(key)
		d.s.mu.Lock()
		_, ok := d.s.pending[id]
		if ok {
			delete(d.s.pending, id)
		}
		d.s.mu.Unlock()
		if !ok {
			continue
		}

		completions = append(completions, Completion{ID: id, Raw: int64(bytes)})

		// Subsequent iterations should not block waiting for more; only the
		// first GetQueuedCompletionStatus call honors timeoutMs.
		timeoutMs = 0
	}
}
