//go:build !integration

// Package unit holds fast, no-root, no-network scenarios: everything that
// doesn't need a listening socket or a real file underneath it. Network-
// and filesystem-backed scenarios live in test/integration.
package unit

import (
	"context"
	"testing"
	"time"

	"github.com/ehrlich-b/lio/op"
	"github.com/ehrlich-b/lio/opstore"
	"github.com/ehrlich-b/lio/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDriver(t *testing.T) *runtime.Driver {
	t.Helper()
	cfg := runtime.DefaultConfig()
	cfg.StoreCapacity = 256
	cfg.BlockingWorkers = 4
	d, err := runtime.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

// TestS1NopBatch is S1: submit 100 nops, a single bounded run
// drains all of them, and every check_done succeeds exactly once.
func TestS1NopBatch(t *testing.T) {
	d := newDriver(t)

	ids := make([]uint64, 100)
	for i := range ids {
		id, err := d.Submit(opstore.StoredOp{Op: op.NewNop()})
		require.NoError(t, err)
		ids[i] = id
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		allDone := true
		for _, id := range ids {
			if _, ok := runtime.CheckDone[op.Result](d, id); !ok {
				allDone = false
			}
		}
		if allDone {
			return
		}
		require.NoError(t, d.RunTimeout(100*time.Millisecond))
	}
	t.Fatal("not all 100 nops completed within the deadline")
}

// TestIdempotentExtraction is invariant 4: check_done returns
// Some at most once per id.
func TestIdempotentExtraction(t *testing.T) {
	d := newDriver(t)

	id, err := d.Submit(opstore.StoredOp{Op: op.NewNop()})
	require.NoError(t, err)
	require.NoError(t, d.Run())

	_, ok := runtime.CheckDone[op.Result](d, id)
	assert.True(t, ok)

	_, ok = runtime.CheckDone[op.Result](d, id)
	assert.False(t, ok, "second check_done on an already-extracted id must fail")
}

// TestS4Timer is S4: a 200ms timeout completes no sooner than
// requested and well inside run_timeout's bound.
func TestS4Timer(t *testing.T) {
	d := newDriver(t)

	const want = 200 * time.Millisecond
	start := time.Now()

	id, err := d.Submit(opstore.StoredOp{Op: op.NewTimeout(want)})
	require.NoError(t, err)

	require.NoError(t, d.RunTimeout(2*time.Second))

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, want-20*time.Millisecond, "timer lower bound violated")
	assert.Less(t, elapsed, 1*time.Second)

	res, ok := runtime.CheckDone[op.TimeoutResult](d, id)
	require.True(t, ok)
	assert.NoError(t, res.Err)
}

// TestFutureWaitRespectsContextCancellation exercises the Future/Wait
// cooperative-awaiting path against an operation that never completes
// within the test's deadline.
func TestFutureWaitRespectsContextCancellation(t *testing.T) {
	d := newDriver(t)

	id, err := d.Submit(opstore.StoredOp{Op: op.NewTimeout(10 * time.Second)})
	require.NoError(t, err)

	fut := runtime.NewFuture[op.TimeoutResult](d, id)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = fut.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestSubmitRejectsAfterClose is Shutdown error kind: once a
// driver is closed, new submissions must not silently succeed.
func TestSubmitRejectsAfterClose(t *testing.T) {
	cfg := runtime.DefaultConfig()
	cfg.StoreCapacity = 16
	d, err := runtime.New(cfg)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	_, err = d.Submit(opstore.StoredOp{Op: op.NewNop()})
	assert.Error(t, err, "submitting to a closed driver must fail")
}
