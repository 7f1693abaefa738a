//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package backend

import (
	"sync"
	"time"
	"unsafe"

	"github.com/ehrlich-b/lio/op"
	"github.com/ehrlich-b/lio/opstore"
	"golang.org/x/sys/unix"
)

// notifyIdent is the ident kqueue's EVFILT_USER notifier is registered
// under, reserved out of band from any fd or timer id.
const notifyIdent = ^uintptr(0)

// PollingV2State is the kqueue-based readiness-to-completion adapter.
// Grounded on the kqueue posture in original_source/lio/src/backends/
// pollingv2/notifier.rs (EVFILT_USER needs no backing fd) and the other
// examples' epoll/kqueue poller shape, translated to golang.org/x/sys/unix.
// An operation's id is stashed in each kevent's Udata pointer-sized field
// (the conventional way Go kqueue pollers smuggle an opaque key through
// the kernel, since Go cannot give the kernel a typed Go pointer).
type PollingV2State struct {
	kq int32

	mu        sync.Mutex
	waiting   map[uint64]*tracked
	timers    map[uint64]*tracked
	immediate map[uint64]int64
}

type tracked struct {
	op       op.Operation
	fd       int32
	readable bool
	writable bool
}

func idToUdata(id uint64) *byte {
	return (*byte)(unsafe.Pointer(uintptr(id)))
}

func udataToID(u *byte) uint64 {
	return uint64(uintptr(unsafe.Pointer(u)))
}

// NewPollingV2State creates the kqueue instance and registers the
// EVFILT_USER notifier.
func NewPollingV2State() (*PollingV2State, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}

	s := &PollingV2State{
		kq:      int32(kq),
		waiting: make(map[uint64]*tracked),
		timers:  make(map[uint64]*tracked),
	}

	ev := unix.Kevent_t{
		Ident:  notifyIdent,
		Filter: unix.EVFILT_USER,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
	}
	if _, err := unix.Kevent(kq, []unix.Kevent_t{ev}, nil, nil); err != nil {
		unix.Close(kq)
		return nil, err
	}

	return s, nil
}

func (s *PollingV2State) Split() (Submitter, Driver) {
	return &pollingV2Submitter{s}, &pollingV2Driver{s}
}

func (s *PollingV2State) Close() error {
	return unix.Close(int(s.kq))
}

type pollingV2Submitter struct {
	s *PollingV2State
}

func kqueueFilterFor(t *tracked) int16 {
	if t.writable {
		return unix.EVFILT_WRITE
	}
	return unix.EVFILT_READ
}

// Submit implements submit path on kqueue.
func (p *pollingV2Submitter) Submit(id uint64, o op.Operation) error {
	c := o.Capability()

	switch c.Kind {
	case op.CapNone:
		raw := o.ExecuteBlocking()
		return p.selfComplete(id, raw)

	case op.CapTimer:
		t := &tracked{op: o}
		p.s.mu.Lock()
		p.s.timers[id] = t
		p.s.mu.Unlock()

		ms := c.Dur / 1_000_000
		if ms < 1 {
			ms = 1
		}
		ev := unix.Kevent_t{
			Ident:  uintptr(id),
			Filter: unix.EVFILT_TIMER,
			Flags:  unix.EV_ADD | unix.EV_ONESHOT,
			Data:   ms,
		}
		if _, err := unix.Kevent(int(p.s.kq), []unix.Kevent_t{ev}, nil, nil); err != nil {
			p.s.mu.Lock()
			delete(p.s.timers, id)
			p.s.mu.Unlock()
			return SubmitErrIO
		}
		return nil

	case op.CapFdRead, op.CapFdWrite:
		fd := c.FD
		t := &tracked{op: o, fd: fd, readable: c.Kind == op.CapFdRead, writable: c.Kind == op.CapFdWrite}

		if _, isConnect := o.(*op.Connect); isConnect {
			raw := o.ExecuteBlocking()
			if !op.IsTemporary(raw) {
				return p.selfComplete(id, raw)
			}
			t.writable = true
			t.readable = false
		}

		p.s.mu.Lock()
		p.s.waiting[id] = t
		p.s.mu.Unlock()

		ev := unix.Kevent_t{
			Ident:  uintptr(fd),
			Filter: kqueueFilterFor(t),
			Flags:  unix.EV_ADD | unix.EV_ONESHOT,
			Udata:  idToUdata(id),
		}
		if _, err := unix.Kevent(int(p.s.kq), []unix.Kevent_t{ev}, nil, nil); err != nil {
			p.s.mu.Lock()
			delete(p.s.waiting, id)
			p.s.mu.Unlock()
			return SubmitErrIO
		}
		return nil

	default:
		return SubmitErrNotCompatible
	}
}

func (p *pollingV2Submitter) selfComplete(id uint64, raw int64) error {
	p.s.mu.Lock()
	if p.s.immediate == nil {
		p.s.immediate = make(map[uint64]int64)
	}
	p.s.immediate[id] = raw
	p.s.mu.Unlock()
	return p.Notify()
}

// Notify triggers the EVFILT_USER sentinel, waking a blocked Kevent call.
func (p *pollingV2Submitter) Notify() error {
	ev := unix.Kevent_t{
		Ident:  notifyIdent,
		Filter: unix.EVFILT_USER,
		Fflags: unix.NOTE_TRIGGER,
	}
	_, err := unix.Kevent(int(p.s.kq), []unix.Kevent_t{ev}, nil, nil)
	return err
}

type pollingV2Driver struct {
	s *PollingV2State
}

func kqTimeoutFromDuration(d *time.Duration) *unix.Timespec {
	if d == nil {
		return nil
	}
	ts := unix.NsecToTimespec(d.Nanoseconds())
	return &ts
}

// WaitTimeout implements wait path on kqueue. Timer
// completions need no follow-up syscall (the EVFILT_TIMER event itself is
// the completion); fd-readiness events re-run ExecuteBlocking and re-arm
// one-shot interest on EAGAIN/EWOULDBLOCK/EINPROGRESS.
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

	events := make([]unix.Kevent_t, 64)
	n, err := unix.Kevent(int(d.s.kq), nil, events, kqTimeoutFromDuration(timeout))
	if err != nil {
		if err == unix.EINTR {
			return completions, nil
		}
		return completions, err
	}

	for i := 0; i < n; i++ {
		ev := events[i]

		if ev.Filter == unix.EVFILT_USER && ev.Ident == notifyIdent {
			continue
		}

		if ev.Filter == unix.EVFILT_TIMER {
			id := uint64(ev.Ident)
			d.s.mu.Lock()
			_, ok := d.s.timers[id]
			if ok {
				delete(d.s.timers, id)
			}
			d.s.mu.Unlock()
			if !ok {
				continue
			}
			completions = append(completions, Completion{ID: id, Raw: 0})
			continue
		}

		id := udataToID(ev.Udata)
		d.s.mu.Lock()
		t, ok := d.s.waiting[id]
		d.s.mu.Unlock()
		if !ok {
			continue
		}

		raw := t.op.ExecuteBlocking()
		if op.IsTemporary(raw) {
			rearm := unix.Kevent_t{
				Ident:  uintptr(t.fd),
				Filter: kqueueFilterFor(t),
				Flags:  unix.EV_ADD | unix.EV_ONESHOT,
				Udata:  idToUdata(id),
			}
			unix.Kevent(int(d.s.kq), []unix.Kevent_t{rearm}, nil, nil)
			continue
		}

		d.s.mu.Lock()
		delete(d.s.waiting, id)
		d.s.mu.Unlock()
		completions = append(completions, Completion{ID: id, Raw: raw})
	}

	return completions, nil
}
