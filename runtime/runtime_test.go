package runtime

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ehrlich-b/lio/op"
	"github.com/ehrlich-b/lio/opstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileFD(t *testing.T) (int32, error) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "lio-runtime-test")
	if err != nil {
		return 0, err
	}
	t.Cleanup(func() { f.Close() })
	return int32(f.Fd()), nil
}

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	cfg := DefaultConfig()
	cfg.StoreCapacity = 16
	cfg.BlockingWorkers = 2
	cfg.BlockingQueueDepth = 16
	d, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDriver_SubmitAndRun(t *testing.T) {
	d := newTestDriver(t)

	id, err := d.Submit(opstore.StoredOp{Op: op.NewNop()})
	require.NoError(t, err)

	require.NoError(t, d.Run())

	val, ok := CheckDone[op.Result](d, id)
	require.True(t, ok)
	assert.Nil(t, val)
}

func TestDriver_TryRunReportsNothingWhenEmpty(t *testing.T) {
	d := newTestDriver(t)
	n, ok := d.TryRun()
	assert.Equal(t, 0, n)
	assert.False(t, ok)
}

func TestDriver_RunTimeoutBoundsWaitWhenIdle(t *testing.T) {
	d := newTestDriver(t)
	start := time.Now()
	err := d.RunTimeout(50 * time.Millisecond)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDriver_FutureWaitResolves(t *testing.T) {
	d := newTestDriver(t)

	id, err := d.Submit(opstore.StoredOp{Op: op.NewNop()})
	require.NoError(t, err)

	fut := NewFuture[op.Result](d, id)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	val, err := fut.Wait(ctx)
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestDriver_SubmitCloseRoutesThroughResource(t *testing.T) {
	d := newTestDriver(t)

	fd, err := fileFD(t)
	require.NoError(t, err)

	r := d.NewResource(fd)
	require.NoError(t, r.Drop())
}

func TestSingletonInitTwiceFails(t *testing.T) {
	require.NoError(t, Init(DefaultConfig()))
	defer Shutdown()

	err := Init(DefaultConfig())
	assert.ErrorIs(t, err, ErrAlreadyInit)

	assert.NotPanics(t, func() { Get() })
}

func TestSingletonGetPanicsBeforeInit(t *testing.T) {
	assert.Panics(t, func() { Get() })
}
