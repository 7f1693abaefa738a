//go:build linux

package backend

import (
	"sync"
	"time"

	"github.com/ehrlich-b/lio/op"
	"github.com/ehrlich-b/lio/opstore"
	"golang.org/x/sys/unix"
)

// notifyKey is the sentinel epoll event key reserved for the wake pipe,
// mirroring the original Rust source's NOTIFY_KEY = u64::MAX.
const notifyKey = ^uint64(0)

// tracked is what the submit path remembers per waiting id: enough to
// re-run execute_blocking and, on EAGAIN/EWOULDBLOCK/EINPROGRESS, re-arm
// one-shot interest on the same fd.
type tracked struct {
	op       op.Operation
	fd       int32
	readable bool
	writable bool
}

// PollingV2State is the epoll-based readiness-to-completion adapter.
// Grounded on original_source/lio/src/backends/pollingv2/os/epoll.rs: an
// epoll instance plus a self-pipe notifier, EPOLLONESHOT on every
// registration so a single ready fd never wakes more than one waiter.
type PollingV2State struct {
	epollFD int32

	notifyR int32
	notifyW int32

	mu        sync.Mutex
	waiting   map[uint64]*tracked
	immediate map[uint64]int64
}

// NewPollingV2State creates the epoll instance and self-pipe notifier.
func NewPollingV2State() (*PollingV2State, error) {
	epollFD, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		unix.Close(epollFD)
		return nil, err
	}

	s := &PollingV2State{
		epollFD: int32(epollFD),
		notifyR: int32(fds[0]),
		notifyW: int32(fds[1]),
		waiting: make(map[uint64]*tracked),
	}

	// The epoll_event.data union is exposed by the Go struct as Fd (low 32
	// bits) + Pad (high 32 bits) forming the 64-bit key we dispatch on.
	ev := unix.EpollEvent{Events: unix.EPOLLIN}
	ev.Fd = int32(uint32(notifyKey))
	ev.Pad = int32(notifyKey >> 32)
	if err := unix.EpollCtl(int(s.epollFD), unix.EPOLL_CTL_ADD, int(s.notifyR), &ev); err != nil {
		unix.Close(int(s.epollFD))
		unix.Close(int(s.notifyR))
		unix.Close(int(s.notifyW))
		return nil, err
	}

	return s, nil
}

func epollEventsFor(t *tracked) uint32 {
	var events uint32
	if t.readable {
		events |= unix.EPOLLIN
	}
	if t.writable {
		events |= unix.EPOLLOUT
	}
	events |= unix.EPOLLONESHOT
	return events
}

// Split returns the submitter/driver halves sharing this state.
func (s *PollingV2State) Split() (Submitter, Driver) {
	return &pollingV2Submitter{s}, &pollingV2Driver{s}
}

// Close tears down the epoll instance and notifier pipe.
func (s *PollingV2State) Close() error {
	unix.Close(int(s.notifyW))
	unix.Close(int(s.notifyR))
	return unix.Close(int(s.epollFD))
}

type pollingV2Submitter struct {
	s *PollingV2State
}

// Submit implements submit path: operations with no
// capability run synchronously and self-complete; fd-carrying operations
// register one-shot readiness; connect tries the syscall once first (since
// EINPROGRESS, not a readiness event, is how a non-blocking connect signals
// "in flight").
func (p *pollingV2Submitter) Submit(id uint64, o op.Operation) error {
	cap := o.Capability()

	switch cap.Kind {
	case op.CapNone:
		raw := o.ExecuteBlocking()
		return p.selfComplete(id, o, raw)

	case op.CapTimer:
		timerFD := cap.FD
		if timerFD == 0 {
			// No Linux timerfd available; fall back to blocking execution.
			return SubmitErrNotCompatible
		}
		t := &tracked{op: o, fd: timerFD, readable: true}
		p.s.mu.Lock()
		p.s.waiting[id] = t
		p.s.mu.Unlock()
		return p.register(int(timerFD), id, t)

	case op.CapFdRead, op.CapFdWrite:
		fd := cap.FD
		t := &tracked{op: o, fd: fd, readable: cap.Kind == op.CapFdRead, writable: cap.Kind == op.CapFdWrite}

		if _, isConnect := o.(*op.Connect); isConnect {
			raw := o.ExecuteBlocking()
			if !op.IsTemporary(raw) {
				return p.selfComplete(id, o, raw)
			}
			t.writable = true
			t.readable = false
		}

		p.s.mu.Lock()
		p.s.waiting[id] = t
		p.s.mu.Unlock()
		return p.register(int(fd), id, t)

	default:
		return SubmitErrNotCompatible
	}
}

func (p *pollingV2Submitter) register(fd int, id uint64, t *tracked) error {
	ev := unix.EpollEvent{Events: epollEventsFor(t)}
	ev.Fd = int32(uint32(id))
	ev.Pad = int32(id >> 32)
	if err := unix.EpollCtl(int(p.s.epollFD), unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		p.s.mu.Lock()
		delete(p.s.waiting, id)
		p.s.mu.Unlock()
		return SubmitErrIO
	}
	return nil
}

// selfComplete enqueues a pre-computed completion by stashing it in the
// immediate map, which the next WaitTimeout call drains without needing a
// poller round-trip, and then wakes that call through Notify.
func (p *pollingV2Submitter) selfComplete(id uint64, _ op.Operation, raw int64) error {
	p.s.mu.Lock()
	if p.s.immediate == nil {
		p.s.immediate = make(map[uint64]int64)
	}
	p.s.immediate[id] = raw
	p.s.mu.Unlock()
	return p.Notify()
}

func (p *pollingV2Submitter) Notify() error {
	var b [1]byte
	b[0] = 1
	_, err := unix.Write(int(p.s.notifyW), b[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

type pollingV2Driver struct {
	s *PollingV2State
}

func msFromDuration(d *time.Duration) int {
	if d == nil {
		return -1
	}
	ms := d.Milliseconds()
	if ms > int64(^uint32(0)>>1) {
		return int(^uint32(0) >> 1)
	}
	return int(ms)
}

// WaitTimeout implements wait path.
func (d *pollingV2Driver) WaitTimeout(store *opstore.Store, timeout *time.Duration) ([]Completion, error) {
	var completions []Completion

	d.s.mu.Lock()
	for id, raw := range d.s.immediate {
		completions = append(completions, Completion{ID: id, Raw: raw})
		delete(d.s.immediate, id)
	}
	d.s.mu.Unlock()
	if len(completions) > 0 {
		return completions, nil
	}

	events := make([]unix.EpollEvent, 64)
	n, err := unix.EpollWait(int(d.s.epollFD), events, msFromDuration(timeout))
	if err != nil {
		if err == unix.EINTR {
			return completions, nil
		}
		return completions, err
	}

	for i := 0; i < n; i++ {
		key := uint64(uint32(events[i].Fd)) | uint64(uint32(events[i].Pad))<<32
		if key == notifyKey {
			var buf [64]byte
			for {
				_, rerr := unix.Read(int(d.s.notifyR), buf[:])
				if rerr != nil {
					break
				}
			}
			continue
		}

		d.s.mu.Lock()
		t, ok := d.s.waiting[key]
		d.s.mu.Unlock()
		if !ok {
			continue
		}

		if t.op.Capability().Kind == op.CapTimer {
			var buf [8]byte
			unix.Read(int(t.fd), buf[:])
			unix.EpollCtl(int(d.s.epollFD), unix.EPOLL_CTL_DEL, int(t.fd), nil)
			d.s.mu.Lock()
			delete(d.s.waiting, key)
			d.s.mu.Unlock()
			completions = append(completions, Completion{ID: key, Raw: 0})
			continue
		}

		raw := t.op.ExecuteBlocking()
		if op.IsTemporary(raw) {
			ev := unix.EpollEvent{Events: epollEventsFor(t)}
			ev.Fd = int32(uint32(key))
			ev.Pad = int32(key >> 32)
			unix.EpollCtl(int(d.s.epollFD), unix.EPOLL_CTL_MOD, int(t.fd), &ev)
			continue
		}

		unix.EpollCtl(int(d.s.epollFD), unix.EPOLL_CTL_DEL, int(t.fd), nil)
		d.s.mu.Lock()
		delete(d.s.waiting, key)
		d.s.mu.Unlock()
		completions = append(completions, Completion{ID: key, Raw: raw})
	}

	return completions, nil
}
