package op

import (
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestNop(t *testing.T) {
	n := NewNop()
	raw := n.ExecuteBlocking()
	assert.Equal(t, int64(0), raw)
	assert.Nil(t, n.Finish(raw))
	assert.True(t, n.DetachSafe())
	assert.Equal(t, CapNone, n.Capability().Kind)
}

func TestWriteReadRoundTrip(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "lio-op-test")
	require.NoError(t, err)
	defer f.Close()
	fd := int32(f.Fd())

	data := []byte("hello, lio")
	w := NewWrite(fd, data, 0)
	raw := w.ExecuteBlocking()
	require.GreaterOrEqual(t, raw, int64(0))
	wres := w.Finish(raw).(WriteResult)
	require.NoError(t, wres.Err)
	assert.Equal(t, int64(len(data)), wres.N)
	assert.Equal(t, data, wres.Buf, "buffer must be returned unchanged")

	buf := make([]byte, 64)
	r := NewRead(fd, buf, 0)
	raw = r.ExecuteBlocking()
	require.GreaterOrEqual(t, raw, int64(0))
	rres := r.Finish(raw).(ReadResult)
	require.NoError(t, rres.Err)
	assert.Equal(t, int64(len(data)), rres.N)
	assert.Equal(t, data, rres.Buf[:rres.N])
}

func TestRead_EOF(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "lio-op-test-eof")
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 16)
	r := NewRead(int32(f.Fd()), buf, 1000)
	raw := r.ExecuteBlocking()
	assert.Equal(t, int64(0), raw, "reading past EOF returns 0, not an error")
}

func TestOpenatClose(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/created.txt"

	o := NewOpenat(int32(unix.AT_FDCWD), path, syscall.O_CREAT|syscall.O_RDWR|syscall.O_TRUNC, 0o644)
	raw := o.ExecuteBlocking()
	require.GreaterOrEqual(t, raw, int64(0))
	ores := o.Finish(raw).(OpenatResult)
	require.NoError(t, ores.Err)

	c := NewClose(ores.FD)
	raw = c.ExecuteBlocking()
	cres := c.Finish(raw).(CloseResult)
	assert.NoError(t, cres.Err)
	assert.True(t, c.DetachSafe())

	// A second close on the same fd reports an error (EBADF-class).
	c2 := NewClose(ores.FD)
	raw = c2.ExecuteBlocking()
	assert.Less(t, raw, int64(0))
}

func TestFtruncateFsync(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "lio-op-truncate")
	require.NoError(t, err)
	defer f.Close()
	fd := int32(f.Fd())

	tr := NewFtruncate(fd, 4096)
	raw := tr.ExecuteBlocking()
	require.GreaterOrEqual(t, raw, int64(0))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(4096), info.Size())

	fsyncOp := NewFsync(fd)
	raw = fsyncOp.ExecuteBlocking()
	assert.GreaterOrEqual(t, raw, int64(0))
	assert.True(t, fsyncOp.DetachSafe())
}

func TestWriteWithLink(t *testing.T) {
	w := NewWrite(1, []byte("x"), 0).WithLink(false)
	assert.Equal(t, LinkSoft, w.Link)
	var entry SubmissionEntry
	w.Prepare(&entry)
	assert.NotZero(t, entry.Flags&sqeFlagIOLink)
}

func TestIsTemporary(t *testing.T) {
	assert.True(t, IsTemporary(-int64(syscall.EAGAIN)))
	assert.True(t, IsTemporary(-int64(syscall.EWOULDBLOCK)))
	assert.True(t, IsTemporary(-int64(syscall.EINPROGRESS)))
	assert.False(t, IsTemporary(0))
	assert.False(t, IsTemporary(-int64(syscall.ENOENT)))
}

func TestIsTimeExpired(t *testing.T) {
	assert.True(t, IsTimeExpired(-int64(syscall.ETIME)))
	assert.False(t, IsTimeExpired(0))
}

func TestNewReadPooledUsesDefaultSize(t *testing.T) {
	r := NewReadPooled(3, 0, 0)
	assert.Len(t, r.Buf, 64*1024)
}

func TestNewRecvPooledHonorsRequestedSize(t *testing.T) {
	r := NewRecvPooled(3, 128*1024, 0)
	assert.Len(t, r.Buf, 128*1024)
}
