// Package runtime is the completion-based I/O driver: one OpStore, a
// primary backend (io_uring or pollingv2, whichever the platform offers),
// and an always-present blocking-fallback backend. Grounded on
// original_source/lio/src/driver.rs's AtomicPtr<Driver> singleton, with the
// teacher's CreateAndServe/StopAndDelete lifecycle pairing as the model for
// Init/Shutdown ordering.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/lio/backend"
	"github.com/ehrlich-b/lio/internal/constants"
	"github.com/ehrlich-b/lio/internal/errs"
	"github.com/ehrlich-b/lio/internal/logging"
	"github.com/ehrlich-b/lio/internal/telemetry"
	"github.com/ehrlich-b/lio/op"
	"github.com/ehrlich-b/lio/opstore"
	"github.com/ehrlich-b/lio/resource"
)

// Config controls how a Driver's backends are sized.
type Config struct {
	// StoreCapacity is the initial opstore slab size.
	StoreCapacity int
	// BlockingWorkers sizes the always-present fallback worker pool.
	BlockingWorkers int
	// BlockingQueueDepth sizes the fallback backend's work channel.
	BlockingQueueDepth int
	// IOUringEntries sizes the io_uring SQ, when available. Ignored on
	// platforms where the io_uring backend cannot be constructed (the
	// driver falls back to pollingv2 or, failing that, blocking-only).
	IOUringEntries uint32
	// SQPollIdleMillis, when non-zero, asks the io_uring backend to set up
	// a kernel-side submission-queue polling thread (IORING_SETUP_SQPOLL)
	// that idles for this long before sleeping. Zero (the default) means
	// no SQPOLL thread; Submit always issues io_uring_enter itself.
	SQPollIdleMillis uint32
	// Observer receives ObserveSubmit/ObserveCompletion calls for every
	// operation the driver handles. Nil means telemetry.NoOpObserver{}.
	Observer telemetry.Observer
	// Logger receives the driver's submit/completion trace lines. Nil
	// means logging.Default().
	Logger *logging.Logger
}

// DefaultConfig returns reasonable defaults, mirroring ublk-go's
// DefaultParams helper for DeviceParams.
func DefaultConfig() Config {
	return Config{
		StoreCapacity:      256,
		BlockingWorkers:    4,
		BlockingQueueDepth: 256,
		IOUringEntries:     128,
		Observer:           telemetry.NoOpObserver{},
		Logger:             logging.Default(),
	}
}

// Driver is a runtime instance: one OpStore, one primary Submitter/Driver
// pair, and one blocking-fallback Submitter/Driver pair.
type Driver struct {
	store *opstore.Store

	primaryState     backend.State
	primarySubmitter backend.Submitter
	primaryDriver    backend.Driver

	fallbackState     *backend.BlockingState
	fallbackSubmitter backend.Submitter
	fallbackDriver    backend.Driver

	observer telemetry.Observer
	logger   *logging.Logger

	pendingMu sync.Mutex
	pending   map[uint64]pendingOp

	closed atomic.Bool
}

// pendingOp is what Submit records about an in-flight operation so
// checkDoneErr can report its kind and Submit-to-Finish latency once it
// completes.
type pendingOp struct {
	kind  constants.OpKind
	start time.Time
}

// New constructs a standalone Driver (the non-singleton path, usable
// alongside the package-level singleton below). It tries the
// io_uring backend first, then pollingv2, and always stands up the
// blocking-fallback backend regardless.
func New(cfg Config) (*Driver, error) {
	store := opstore.NewStore(cfg.StoreCapacity)

	primaryState, err := newPrimaryBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("runtime: no primary backend available: %w", err)
	}
	primarySubmitter, primaryDriver := primaryState.Split()

	fallbackState := backend.NewBlockingState(cfg.BlockingWorkers, cfg.BlockingQueueDepth)
	fallbackSubmitter, fallbackDriver := fallbackState.Split()

	observer := cfg.Observer
	if observer == nil {
		observer = telemetry.NoOpObserver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Driver{
		store:             store,
		primaryState:      primaryState,
		primarySubmitter:  primarySubmitter,
		primaryDriver:     primaryDriver,
		fallbackState:     fallbackState,
		fallbackSubmitter: fallbackSubmitter,
		fallbackDriver:    fallbackDriver,
		observer:          observer,
		logger:            logger,
		pending:           make(map[uint64]pendingOp),
	}, nil
}

// Close tears down both backends. It marks the driver closed, so later
// Submit calls fail with errs.ErrShutdown, then closes the primary backend
// and the blocking fallback; completions not yet collected by Run are not
// drained.
func (d *Driver) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	primaryErr := d.primaryState.Close()
	fallbackErr := d.fallbackState.Close()
	if primaryErr != nil {
		return primaryErr
	}
	return fallbackErr
}

// SubmitClose implements resource.Closer: Resource routes its deferred
// close through the runtime so the same submit/run machinery that drives
// every other operation also drives fd teardown. Close is detach-safe, so
// blocking the caller until it lands is an acceptable, rare cost.
func (d *Driver) SubmitClose(fd int32) error {
	id, err := d.Submit(opstore.StoredOp{Op: op.NewClose(fd)})
	if err != nil {
		return err
	}
	for {
		if res, err := d.checkDoneErr(id); err == nil {
			if cr, ok := res.(op.CloseResult); ok {
				return cr.Err
			}
			return nil
		} else if err != errs.ErrEntryNotCompleted {
			return err
		}
		if err := d.Run(); err != nil {
			return err
		}
	}
}

// NewResource wraps fd in a *resource.Resource whose last-drop close is
// routed through this driver.
func (d *Driver) NewResource(fd int32) *resource.Resource {
	return resource.New(fd, d)
}

// Submit implements submit(stored): insert into the store,
// then try the primary backend; on NotCompatible, reissue the same id and
// operation against the blocking fallback. A closed driver rejects the
// submission with errs.ErrShutdown.
func (d *Driver) Submit(stored opstore.StoredOp) (uint64, error) {
	if d.closed.Load() {
		return 0, errs.ErrShutdown
	}
	kind := stored.Op.Kind()

	// Callback-driven completions resolve through opstore.Store.SetDone and
	// never pass through checkDoneErr/takePending, so without this wrapper
	// their pending entry (and latency sample) would never be cleared.
	// idBox is safe to capture unset here: the wrapped callback can only
	// fire after Submit hands the op to a backend below, which happens
	// strictly after idBox is assigned from Insert's return value.
	var idBox uint64
	if stored.Notifier.Kind == opstore.NotifierCallback {
		orig := stored.Notifier.Callback
		stored.Notifier.Callback = func(result op.Result) {
			d.takePending(idBox)
			if orig != nil {
				orig(result)
			}
		}
	}

	id := d.store.Insert(stored)
	idBox = id

	d.logger.Debugf("submitting op id=%d type=%s", id, kind)
	d.observer.ObserveSubmit(kind)

	err := d.primarySubmitter.Submit(id, stored.Op)
	if err == nil {
		d.trackPending(id, kind)
		return id, nil
	}

	if err == backend.SubmitErrNotCompatible {
		if ferr := d.fallbackSubmitter.Submit(id, stored.Op); ferr == nil {
			d.trackPending(id, kind)
			return id, nil
		} else {
			d.store.Remove(id)
			return 0, wrapSubmitError(ferr)
		}
	}

	d.store.Remove(id)
	return 0, wrapSubmitError(err)
}

// wrapSubmitError turns a backend.SubmitError (or, defensively, any other
// error a Submitter returns) into the *errs.Error code a caller can match
// against with errs.IsCode/errors.Is.
func wrapSubmitError(err error) error {
	se, ok := err.(backend.SubmitError)
	if !ok {
		return errs.WrapError("submit", err)
	}
	switch se {
	case backend.SubmitErrFull:
		return errs.ErrFull
	case backend.SubmitErrNotCompatible:
		return errs.ErrNotCompatible
	case backend.SubmitErrShutdown:
		return errs.ErrShutdown
	default:
		return errs.NewError("submit", errs.ErrCodeErrno, se.Error())
	}
}

func (d *Driver) trackPending(id uint64, kind constants.OpKind) {
	d.pendingMu.Lock()
	d.pending[id] = pendingOp{kind: kind, start: time.Now()}
	d.pendingMu.Unlock()
}

// takePending removes and returns id's pending entry, if any. A missing
// entry (callback-driven completions bypass checkDoneErr entirely) just
// means no latency/observer sample is recorded for it.
func (d *Driver) takePending(id uint64) (pendingOp, bool) {
	d.pendingMu.Lock()
	p, ok := d.pending[id]
	if ok {
		delete(d.pending, id)
	}
	d.pendingMu.Unlock()
	return p, ok
}

// applyCompletions pushes every (id, raw) pair from cs into the store via
// set_done, per "submit(id) happens-before set_done(id, r)"
// ordering.
func (d *Driver) applyCompletions(cs []backend.Completion) {
	for _, c := range cs {
		d.logger.Debugf("driver: CQE id=%d res=%d", c.ID, c.Raw)
		d.store.SetDone(c.ID, c.Raw)
	}
}

// Run implements run(): blocks until the primary driver returns, with at
// least one completion or after a Notify wake-up (which may bring none),
// then drains the blocking fallback non-blockingly.
func (d *Driver) Run() error {
	cs, err := d.primaryDriver.WaitTimeout(d.store, nil)
	if err != nil {
		return err
	}
	d.applyCompletions(cs)

	zero := time.Duration(0)
	if fcs, ferr := d.fallbackDriver.WaitTimeout(d.store, &zero); ferr == nil {
		d.applyCompletions(fcs)
	}
	return nil
}

// TryRun implements try_run(): the same drain, with a zero timeout on the
// primary driver too. The bool result reports whether anything completed.
func (d *Driver) TryRun() (int, bool) {
	zero := time.Duration(0)
	cs, err := d.primaryDriver.WaitTimeout(d.store, &zero)
	if err != nil {
		return 0, false
	}
	d.applyCompletions(cs)

	if fcs, ferr := d.fallbackDriver.WaitTimeout(d.store, &zero); ferr == nil {
		d.applyCompletions(fcs)
		cs = append(cs, fcs...)
	}
	return len(cs), len(cs) > 0
}

// RunTimeout implements run_timeout(d): bounds the wait to approximately d
// even if nothing completes. On the io_uring backend (which has no native
// bounded-wait argument in this ring's syscall-level usage), the bound is
// enforced by racing the blocking Run against a timer that calls Notify().
func (d *Driver) RunTimeout(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- d.Run()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		d.primarySubmitter.Notify()
		return <-done
	}
}

// checkDoneErr extracts id's result if Done, or reports which of the two
// named check_done failure kinds applies: ErrEntryNotFound for an id the
// store has never seen (or has already freed), ErrEntryNotCompleted for
// one still sitting in Waiting.
func (d *Driver) checkDoneErr(id uint64) (op.Result, error) {
	raw, ok := d.store.TryExtract(id)
	if !ok {
		state, exists := d.store.State(id)
		if !exists {
			return nil, errs.ErrEntryNotFound
		}
		if state == opstore.StateWaiting {
			return nil, errs.ErrEntryNotCompleted
		}
		return nil, errs.ErrEntryNotFound
	}
	var result op.Result
	d.store.Get(id, func(o op.Operation, _ *opstore.Notifier, _ opstore.State) {
		result = o.Finish(raw)
	})
	d.store.Remove(id)

	if p, ok := d.takePending(id); ok {
		latencyNs := uint64(time.Since(p.start).Nanoseconds())
		d.observer.ObserveCompletion(p.kind, 0, latencyNs, raw >= 0)
	}

	return result, nil
}

// CheckDoneErr implements check_done<T>(id), distinguishing an unknown id
// (ErrEntryNotFound) from one still Waiting (ErrEntryNotCompleted) instead
// of collapsing both into a single failure.
func CheckDoneErr[T any](d *Driver, id uint64) (T, error) {
	var zero T
	res, err := d.checkDoneErr(id)
	if err != nil {
		return zero, err
	}
	// A nil result (Nop's success) carries no dynamic type, so it is
	// returned as the zero T instead of failing the assertion.
	typed, ok := res.(T)
	if !ok && res != nil {
		return zero, errs.NewError("check_done", errs.ErrCodeInvalidInput, "result type mismatch")
	}
	return typed, nil
}

// CheckDone implements check_done<T>(id) as the boolean convenience form
// of CheckDoneErr, for callers (Future.Poll/Wait) that only need to know
// whether the value is ready yet.
func CheckDone[T any](d *Driver, id uint64) (T, bool) {
	val, err := CheckDoneErr[T](d, id)
	return val, err == nil
}

// SetWaker implements set_waker(id, w): installs w on id's slot.
func (d *Driver) SetWaker(id uint64, w opstore.Waker) {
	d.store.SetWaker(id, w)
}

func newPrimaryBackend(cfg Config) (backend.State, error) {
	if cfg.SQPollIdleMillis > 0 {
		if st, err := backend.NewIOUringStateSQPoll(cfg.IOUringEntries, cfg.SQPollIdleMillis); err == nil {
			return st, nil
		}
	}
	if st, err := backend.NewIOUringState(cfg.IOUringEntries); err == nil {
		return st, nil
	}
	if st, err := backend.NewPollingV2State(); err == nil {
		return st, nil
	}
	return nil, fmt.Errorf("neither io_uring nor pollingv2 backend is available on this platform")
}

// singleton is the process-wide Driver, guarded by an atomic CAS so
// concurrent Init attempts are tolerated: only the first succeeds, every
// other caller gets AlreadyInit.
var singleton atomic.Pointer[Driver]
var initMu sync.Mutex

// ErrAlreadyInit is returned by Init when the singleton is already set.
var ErrAlreadyInit = fmt.Errorf("runtime: already initialized")

// Init initializes the process-wide singleton Driver. Safe to call from
// multiple goroutines concurrently; exactly one call succeeds.
func Init(cfg Config) error {
	initMu.Lock()
	defer initMu.Unlock()

	if singleton.Load() != nil {
		return ErrAlreadyInit
	}
	d, err := New(cfg)
	if err != nil {
		return err
	}
	if !singleton.CompareAndSwap(nil, d) {
		d.Close()
		return ErrAlreadyInit
	}
	return nil
}

// Get returns the process-wide singleton Driver. Panics if Init has not
// been called, matching original_source/lio/src/driver.rs's Driver::get().
func Get() *Driver {
	d := singleton.Load()
	if d == nil {
		panic("runtime: singleton not initialized, call runtime.Init first")
	}
	return d
}

// Shutdown tears down the process-wide singleton, releasing it for a
// subsequent Init call.
func Shutdown() error {
	initMu.Lock()
	defer initMu.Unlock()

	d := singleton.Swap(nil)
	if d == nil {
		return nil
	}
	return d.Close()
}

// Future is a (id, phantom<T>) awaitable handle. Go has no native
// async/await, so callers either poll cooperatively via Poll, which checks
// the slot without blocking and installs a waker if it is still pending,
// or block via Wait, which drives Run until completion or ctx cancellation.
type Future[T any] struct {
	driver *Driver
	id     uint64
}

// NewFuture wraps id (as returned by Driver.Submit) in a typed handle.
func NewFuture[T any](d *Driver, id uint64) Future[T] {
	return Future[T]{driver: d, id: id}
}

// Poll returns (value, true) if the operation has completed, else
// (zero, false). On a false return with w non-nil, w is installed as the
// slot's waker so a later completion can signal readiness.
func (f Future[T]) Poll(w opstore.Waker) (T, bool) {
	val, ok := CheckDone[T](f.driver, f.id)
	if ok {
		return val, true
	}
	if w != nil {
		f.driver.SetWaker(f.id, w)
	}
	var zero T
	return zero, false
}

// Wait blocks, driving the driver's Run loop, until the operation
// completes or ctx is cancelled.
func (f Future[T]) Wait(ctx context.Context) (T, error) {
	for {
		if val, ok := CheckDone[T](f.driver, f.id); ok {
			return val, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		default:
		}
		runDone := make(chan error, 1)
		go func() { runDone <- f.driver.Run() }()
		select {
		case err := <-runDone:
			if err != nil {
				var zero T
				return zero, err
			}
		case <-ctx.Done():
			// Wake the blocked Run so it does not outlive this call.
			f.driver.primarySubmitter.Notify()
			<-runDone
			var zero T
			return zero, ctx.Err()
		}
	}
}
