package resource

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func openTempFD(t *testing.T) int32 {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "lio-resource-test")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return int32(f.Fd())
}

// stubCloser is a hand-rolled fake satisfying the Closer seam, in the
// teacher's mock-not-framework test style.
type stubCloser struct {
	closed []int32
}

func (s *stubCloser) SubmitClose(fd int32) error {
	s.closed = append(s.closed, fd)
	return unix.Close(int(fd))
}

func TestResource_CloneAndDrop(t *testing.T) {
	fd := openTempFD(t)
	closer := &stubCloser{}
	r := New(fd, closer)

	clone := r.Clone()
	assert.Equal(t, fd, clone.AsRaw())

	// Dropping one of two references must not close the descriptor yet.
	require.NoError(t, r.Drop())
	assert.Empty(t, closer.closed)

	// Dropping the last reference schedules the close.
	require.NoError(t, clone.Drop())
	assert.Equal(t, []int32{fd}, closer.closed)
}

func TestResource_DontClose(t *testing.T) {
	fd := openTempFD(t)
	closer := &stubCloser{}
	r := New(fd, closer)
	r.DontClose()

	require.NoError(t, r.Drop())
	assert.Empty(t, closer.closed, "DontClose must suppress the deferred close")

	unix.Close(int(fd))
}

func TestResource_TryIntoUnique(t *testing.T) {
	fd := openTempFD(t)
	r := New(fd, nil)

	clone := r.Clone()
	_, err := r.TryIntoUnique()
	assert.ErrorIs(t, err, ErrNotUnique)

	require.NoError(t, clone.Drop())
	u, err := r.TryIntoUnique()
	require.NoError(t, err)
	assert.Equal(t, fd, u.AsRaw())
	assert.NoError(t, u.Close())
}

func TestResource_NilCloserClosesDirectly(t *testing.T) {
	fd := openTempFD(t)
	r := New(fd, nil)
	require.NoError(t, r.Drop())

	// The fd should now be invalid.
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	assert.Error(t, err)
}
