// Package lio is the completion-based async I/O runtime core: a single
// top-level surface over the operation catalog (package op), the slab
// operation store (package opstore), the platform backend layer (package
// backend) and the runtime driver (package runtime), It
// does not add behavior of its own; it re-exports the C5 driver API so
// callers don't need to import four subpackages to submit and drive an
// operation.
package lio

import (
	"context"
	"time"

	"github.com/ehrlich-b/lio/op"
	"github.com/ehrlich-b/lio/opstore"
	"github.com/ehrlich-b/lio/resource"
	"github.com/ehrlich-b/lio/runtime"
)

// Config controls how a Driver's backends are sized. Alias of
// runtime.Config so callers never need to import runtime directly.
type Config = runtime.Config

// DefaultConfig returns the default Config.
func DefaultConfig() Config { return runtime.DefaultConfig() }

// Driver is a standalone runtime instance, constructed with New. Most
// programs use the package-level singleton (Init/Get/Shutdown) instead.
type Driver = runtime.Driver

// New constructs a standalone Driver, independent of the package-level
// singleton.
func New(cfg Config) (*Driver, error) { return runtime.New(cfg) }

// Init initializes the process-wide singleton Driver. Safe to call from
// multiple goroutines; exactly one call succeeds, the rest get
// ErrAlreadyInit.
func Init(cfg Config) error { return runtime.Init(cfg) }

// Get returns the process-wide singleton Driver. Panics if Init has not
// been called.
func Get() *Driver { return runtime.Get() }

// Shutdown tears down the process-wide singleton Driver.
func Shutdown() error { return runtime.Shutdown() }

// ErrAlreadyInit is returned by Init when the singleton is already set.
var ErrAlreadyInit = runtime.ErrAlreadyInit

// Submit implements submit(stored_op) -> id against the process-wide
// singleton: it inserts op into the store and hands it to whichever
// backend accepts it, transparently retrying on the blocking fallback
// when the primary backend reports NotCompatible.
func Submit(o op.Operation) (uint64, error) {
	return Get().Submit(opstore.StoredOp{Op: o})
}

// Run blocks until at least one operation completes, against the
// process-wide singleton.
func Run() error { return Get().Run() }

// TryRun drives a single non-blocking completion pass against the
// process-wide singleton, reporting how many operations completed.
func TryRun() (int, bool) { return Get().TryRun() }

// RunTimeout bounds the wait to approximately d even if nothing
// completes, against the process-wide singleton.
func RunTimeout(d time.Duration) error { return Get().RunTimeout(d) }

// CheckDone implements check_done::<T>(id) against the process-wide
// singleton: if id's slot is Done, extracts and type-asserts its result.
func CheckDone[T any](id uint64) (T, bool) {
	return runtime.CheckDone[T](Get(), id)
}

// CheckDoneErr implements check_done::<T>(id) against the process-wide
// singleton with the distinguished error kinds: ErrEntryNotFound for an
// unknown id, ErrEntryNotCompleted for one still Waiting.
func CheckDoneErr[T any](id uint64) (T, error) {
	return runtime.CheckDoneErr[T](Get(), id)
}

// SetWaker installs w as id's waker against the process-wide singleton.
func SetWaker(id uint64, w opstore.Waker) { Get().SetWaker(id, w) }

// NewResource wraps fd in a *resource.Resource whose last-drop close is
// routed through the process-wide singleton.
func NewResource(fd int32) *resource.Resource { return Get().NewResource(fd) }

// Future is a typed awaitable handle over a submitted operation's id.
type Future[T any] = runtime.Future[T]

// Await submits o against the process-wide singleton and returns a typed
// Future for it.
func Await[T any](o op.Operation) (Future[T], error) {
	id, err := Submit(o)
	if err != nil {
		var zero Future[T]
		return zero, err
	}
	return runtime.NewFuture[T](Get(), id), nil
}

// Wait blocks, driving the singleton's Run loop, until fut completes or
// ctx is cancelled.
func Wait[T any](ctx context.Context, fut Future[T]) (T, error) {
	return fut.Wait(ctx)
}

// Operation constructors, re-exported from package op
// catalog so callers can write lio.NewRead(...) instead of op.NewRead(...).
var (
	NewNop       = op.NewNop
	NewClose     = op.NewClose
	NewRead      = op.NewRead
	NewWrite     = op.NewWrite
	NewReadvAt   = op.NewReadvAt
	NewWritevAt  = op.NewWritevAt
	NewOpenat    = op.NewOpenat
	NewFsync     = op.NewFsync
	NewFtruncate = op.NewFtruncate
	NewUnlinkat  = op.NewUnlinkat
	NewLinkat    = op.NewLinkat
	NewSymlinkat = op.NewSymlinkat
	NewSocket    = op.NewSocket
	NewBind      = op.NewBind
	NewListen    = op.NewListen
	NewAccept    = op.NewAccept
	NewConnect   = op.NewConnect
	NewSend      = op.NewSend
	NewRecv      = op.NewRecv
	NewShutdown  = op.NewShutdown
	NewTee       = op.NewTee
	NewTimeout   = op.NewTimeout
)
