// Package resource provides a reference-counted owning handle over a raw
// kernel descriptor, with deferred close-on-last-drop routed back through
// the runtime.
package resource

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Closer is the seam Resource uses to route its deferred close through a
// runtime driver without importing it directly (the runtime package, in
// turn, imports resource, not the other way around).
type Closer interface {
	// SubmitClose schedules fd to be closed and blocks until the close
	// operation completes, returning its error; Drop passes that error on
	// to its own caller.
	SubmitClose(fd int32) error
}

// shared is the ref-counted state behind every clone of a Resource.
type shared struct {
	fd         int32
	autoClose  atomic.Bool
	refs       atomic.Int32
	closer     Closer
	closeOnce  sync.Once
}

// Resource is a shared-ownership handle over fd. Cloning increments the
// reference count; it is never a dup of the underlying descriptor.
type Resource struct {
	s       *shared
	dropped atomic.Bool
}

// New wraps fd in a Resource with a single reference and auto-close enabled.
// closer is used for the deferred close issued when the last reference
// drops; it may be nil, in which case the last drop closes the descriptor
// directly with close(2).
func New(fd int32, closer Closer) *Resource {
	s := &shared{fd: fd, closer: closer}
	s.autoClose.Store(true)
	s.refs.Store(1)
	return &Resource{s: s}
}

// Clone returns a new handle sharing the same underlying descriptor and
// reference count. Cheap: an atomic increment, not a dup(2).
func (r *Resource) Clone() *Resource {
	r.s.refs.Add(1)
	return &Resource{s: r.s}
}

// AsRaw returns the underlying kernel descriptor. Valid only while this
// Resource (or a clone of it) is alive.
func (r *Resource) AsRaw() int32 {
	return r.s.fd
}

// DontClose clears the auto-close flag for every outstanding clone of this
// handle: when the last reference drops, the descriptor is left open.
func (r *Resource) DontClose() {
	r.s.autoClose.Store(false)
}

// ErrNotUnique is returned by TryIntoUnique when other clones are alive.
var ErrNotUnique = uniqueErr{}

type uniqueErr struct{}

func (uniqueErr) Error() string { return "resource: other references are still alive" }

// TryIntoUnique succeeds only when r is the last reference, returning a
// Unique handle that owns the descriptor outright and is no longer
// ref-counted. Used to compose a Resource into a higher-level socket/file
// type that wants exclusive ownership.
func (r *Resource) TryIntoUnique() (*Unique, error) {
	if r.s.refs.Load() != 1 {
		return nil, ErrNotUnique
	}
	return &Unique{fd: r.s.fd, autoClose: r.s.autoClose.Load()}, nil
}

// Drop releases this handle's reference. When the last reference drops and
// auto-close is set, a close operation is scheduled through the runtime;
// the resulting blocking wait for close completion is an acceptable cost
// since last-ref drops are rare on a hot path. Drop is idempotent: calling
// it more than once on the same handle is a caller bug but does not double
// free (each handle decrements the shared refcount at most once, and the
// close itself runs under a sync.Once per shared state).
func (r *Resource) Drop() error {
	if !r.dropped.CompareAndSwap(false, true) {
		return nil
	}
	remaining := r.s.refs.Add(-1)
	if remaining > 0 {
		return nil
	}
	if remaining < 0 {
		// Already dropped to zero by a racing clone; nothing further to do.
		return nil
	}

	var closeErr error
	r.s.closeOnce.Do(func() {
		if !r.s.autoClose.Load() {
			return
		}
		if r.s.closer != nil {
			closeErr = r.s.closer.SubmitClose(r.s.fd)
		} else {
			closeErr = unix.Close(int(r.s.fd))
		}
	})
	return closeErr
}

// Unique is an exclusively-owned descriptor produced by TryIntoUnique. It
// is not ref-counted; Close runs synchronously.
type Unique struct {
	fd        int32
	autoClose bool
}

// AsRaw returns the underlying descriptor.
func (u *Unique) AsRaw() int32 { return u.fd }

// Close closes the descriptor if auto-close was set when this Unique was
// produced.
func (u *Unique) Close() error {
	if !u.autoClose {
		return nil
	}
	return unix.Close(int(u.fd))
}
