package backend

import (
	"context"
	"sync"
	"time"

	"github.com/ehrlich-b/lio/op"
	"github.com/ehrlich-b/lio/opstore"
)

// work is a single (id, op) pair handed to a blocking worker.
type work struct {
	id uint64
	op op.Operation
}

// BlockingState is the always-present fallback backend: a fixed pool of
// goroutines, each pulling work off a shared channel, running
// op.ExecuteBlocking() inline, and pushing the (id, raw) pair onto a
// result channel for the Driver side to drain. Grounded on ublk-go's
// one-goroutine-per-queue Runner.ioLoop shape, generalized from a single
// pinned queue to an arbitrary-size worker pool since blocking-fallback
// operations have no natural per-queue affinity.
type BlockingState struct {
	workCh   chan work
	resultCh chan Completion
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewBlockingState starts workers goroutines draining a shared work queue
// of depth queueDepth.
func NewBlockingState(workers, queueDepth int) *BlockingState {
	if workers < 1 {
		workers = 1
	}
	if queueDepth < 1 {
		queueDepth = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &BlockingState{
		workCh:   make(chan work, queueDepth),
		resultCh: make(chan Completion, queueDepth),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

func (s *BlockingState) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case w, ok := <-s.workCh:
			if !ok {
				return
			}
			raw := w.op.ExecuteBlocking()
			select {
			case s.resultCh <- Completion{ID: w.id, Raw: raw}:
			case <-s.ctx.Done():
				return
			}
		}
	}
}

// Split returns the submitter/driver halves of this blocking backend.
func (s *BlockingState) Split() (Submitter, Driver) {
	return &blockingSubmitter{s}, &blockingDriver{s}
}

// Close cancels outstanding workers and waits for them to return. Workers
// blocked inside ExecuteBlocking on a genuinely slow syscall are not
// interrupted; Close waits for them to notice the cancelled context at
// their next loop iteration.
func (s *BlockingState) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

type blockingSubmitter struct {
	s *BlockingState
}

func (b *blockingSubmitter) Submit(id uint64, o op.Operation) error {
	select {
	case <-b.s.ctx.Done():
		return SubmitErrShutdown
	default:
	}
	select {
	case b.s.workCh <- work{id: id, op: o}:
		return nil
	default:
		return SubmitErrFull
	}
}

// Notify on the blocking backend is a no-op: WaitTimeout already polls its
// result channel with a timer and never parks indefinitely without also
// observing ctx.Done, so there is no separate wake primitive to kick.
func (b *blockingSubmitter) Notify() error { return nil }

type blockingDriver struct {
	s *BlockingState
}

// WaitTimeout blocks (up to timeout) for a first completion, then drains
// whatever else is already queued on the result channel, mirroring the
// io_uring driver's "block for >=1, then drain non-blockingly" shape.
// store is unused here: the blocking backend never touches slot state
// directly, it only reports (id, raw) pairs for the runtime to apply.
func (b *blockingDriver) WaitTimeout(_ *opstore.Store, timeout *time.Duration) ([]Completion, error) {
	var completions []Completion

	drain := func() {
		for {
			select {
			case c := <-b.s.resultCh:
				completions = append(completions, c)
			default:
				return
			}
		}
	}

	if timeout != nil && *timeout == 0 {
		drain()
		return completions, nil
	}

	var timer *time.Timer
	var timerCh <-chan time.Time
	if timeout != nil {
		timer = time.NewTimer(*timeout)
		defer timer.Stop()
		timerCh = timer.C
	}

	select {
	case c := <-b.s.resultCh:
		completions = append(completions, c)
	case <-timerCh:
		return completions, nil
	case <-b.s.ctx.Done():
		return completions, nil
	}
	drain()
	return completions, nil
}
