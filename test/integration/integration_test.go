//go:build integration

// Package integration drives the real socket/file scenarios (S2, S3, S5,
// S6) end to end through the runtime driver, exercising
// whichever primary backend the host actually offers (io_uring, then
// pollingv2) plus the always-present blocking fallback.
package integration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ehrlich-b/lio/op"
	"github.com/ehrlich-b/lio/opstore"
	"github.com/ehrlich-b/lio/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newDriver(t *testing.T) *runtime.Driver {
	t.Helper()
	cfg := runtime.DefaultConfig()
	d, err := runtime.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

// await submits o, drives d's run loop until id completes, and type-asserts
// the typed result.
func await[T any](t *testing.T, d *runtime.Driver, o op.Operation) T {
	t.Helper()
	id, err := d.Submit(opstore.StoredOp{Op: o})
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if val, ok := runtime.CheckDone[T](d, id); ok {
			return val
		}
		require.NoError(t, d.RunTimeout(200*time.Millisecond))
	}
	t.Fatalf("operation did not complete within the deadline")
	panic("unreachable")
}

// TestS2PipeEcho is S2: write then read a pipe round-trip.
func TestS2PipeEcho(t *testing.T) {
	d := newDriver(t)

	fds := make([]int, 2)
	require.NoError(t, unix.Pipe(fds))
	rd, wr := int32(fds[0]), int32(fds[1])
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	wres := await[op.WriteResult](t, d, op.NewWrite(wr, []byte("Hello!"), 0))
	require.NoError(t, wres.Err)
	assert.EqualValues(t, 6, wres.N)

	buf := make([]byte, 6)
	rres := await[op.ReadResult](t, d, op.NewRead(rd, buf, 0))
	require.NoError(t, rres.Err)
	assert.EqualValues(t, 6, rres.N)
	assert.Equal(t, "Hello!", string(buf))
}

// TestS3TCPEcho is S3: bind, listen, accept, and a PING
// round-trip over a loopback TCP connection.
func TestS3TCPEcho(t *testing.T) {
	d := newDriver(t)

	listenerFD := await[op.SocketResult](t, d, op.NewSocket(unix.AF_INET, unix.SOCK_STREAM, 0))
	require.NoError(t, listenerFD.Err)
	defer unix.Close(int(listenerFD.FD))

	addr := &unix.SockaddrInet4{Port: 0}
	copy(addr.Addr[:], []byte{127, 0, 0, 1})
	bres := await[op.BindResult](t, d, op.NewBind(listenerFD.FD, addr))
	require.NoError(t, bres.Err)

	bound, err := unix.Getsockname(int(listenerFD.FD))
	require.NoError(t, err)
	boundAddr := bound.(*unix.SockaddrInet4)

	lres := await[op.ListenResult](t, d, op.NewListen(listenerFD.FD, 16))
	require.NoError(t, lres.Err)

	clientFD := await[op.SocketResult](t, d, op.NewSocket(unix.AF_INET, unix.SOCK_STREAM, 0))
	require.NoError(t, clientFD.Err)
	defer unix.Close(int(clientFD.FD))

	connAddr := &unix.SockaddrInet4{Port: boundAddr.Port}
	copy(connAddr.Addr[:], boundAddr.Addr[:])

	connDone := make(chan op.ConnectResult, 1)
	go func() { connDone <- await[op.ConnectResult](t, d, op.NewConnect(clientFD.FD, connAddr)) }()

	ares := await[op.AcceptResult](t, d, op.NewAccept(listenerFD.FD))
	require.NoError(t, ares.Err)
	defer unix.Close(int(ares.FD))

	cres := <-connDone
	require.NoError(t, cres.Err)

	sres := await[op.SendResult](t, d, op.NewSend(clientFD.FD, []byte("PING"), 0))
	require.NoError(t, sres.Err)
	assert.EqualValues(t, 4, sres.N)

	recvBuf := make([]byte, 4)
	rres := await[op.RecvResult](t, d, op.NewRecv(ares.FD, recvBuf, 0))
	require.NoError(t, rres.Err)
	assert.EqualValues(t, 4, rres.N)
	assert.Equal(t, "PING", string(recvBuf))
}

// TestS5FileRoundTrip is S5: create a file, write a 1MiB
// pattern at offset 0, fsync, read it back, and close.
func TestS5FileRoundTrip(t *testing.T) {
	d := newDriver(t)

	path := filepath.Join(t.TempDir(), "roundtrip")
	ores := await[op.OpenatResult](t, d, op.NewOpenat(unix.AT_FDCWD, path, unix.O_CREAT|unix.O_RDWR|unix.O_TRUNC, 0o644))
	require.NoError(t, ores.Err)
	fd := ores.FD

	const size = 1 << 20
	pattern := make([]byte, size)
	for i := range pattern {
		pattern[i] = byte(i)
	}

	wres := await[op.WriteResult](t, d, op.NewWrite(fd, pattern, 0))
	require.NoError(t, wres.Err)
	assert.EqualValues(t, size, wres.N)

	fres := await[op.FsyncResult](t, d, op.NewFsync(fd))
	require.NoError(t, fres.Err)

	readBuf := make([]byte, size)
	rres := await[op.ReadResult](t, d, op.NewRead(fd, readBuf, 0))
	require.NoError(t, rres.Err)
	assert.EqualValues(t, size, rres.N)
	assert.Equal(t, pattern, readBuf)

	cres := await[op.CloseResult](t, d, op.NewClose(fd))
	require.NoError(t, cres.Err)
}

// TestEOFAtOrPastFilesize is invariant 6: reading at or past
// filesize returns 0 bytes, not an error.
func TestEOFAtOrPastFilesize(t *testing.T) {
	d := newDriver(t)

	path := filepath.Join(t.TempDir(), "eof")
	ores := await[op.OpenatResult](t, d, op.NewOpenat(unix.AT_FDCWD, path, unix.O_CREAT|unix.O_RDWR|unix.O_TRUNC, 0o644))
	require.NoError(t, ores.Err)
	defer unix.Close(int(ores.FD))

	wres := await[op.WriteResult](t, d, op.NewWrite(ores.FD, []byte("abc"), 0))
	require.NoError(t, wres.Err)

	buf := make([]byte, 16)
	rres := await[op.ReadResult](t, d, op.NewRead(ores.FD, buf, 3))
	require.NoError(t, rres.Err)
	assert.EqualValues(t, 0, rres.N)
}

// TestS6BackendFallback is S6: openat has no registration-based
// readiness path, yet submitting it must still deliver a valid fd. The
// pollingv2 backend runs such capability-None operations synchronously at
// submit time and self-completes them; io_uring has a native openat opcode.
func TestS6BackendFallback(t *testing.T) {
	d := newDriver(t)

	path := filepath.Join(t.TempDir(), "fallback")
	ores := await[op.OpenatResult](t, d, op.NewOpenat(unix.AT_FDCWD, path, unix.O_CREAT|unix.O_RDWR, 0o644))
	require.NoError(t, ores.Err)
	assert.Greater(t, ores.FD, int32(-1))

	_, err := os.Stat(path)
	assert.NoError(t, err)

	unix.Close(int(ores.FD))
}

// TestCloseOrdering is invariant 7: after close completes,
// operating on the same raw fd again fails.
func TestCloseOrdering(t *testing.T) {
	d := newDriver(t)

	path := filepath.Join(t.TempDir(), "closed")
	ores := await[op.OpenatResult](t, d, op.NewOpenat(unix.AT_FDCWD, path, unix.O_CREAT|unix.O_RDWR, 0o644))
	require.NoError(t, ores.Err)

	cres := await[op.CloseResult](t, d, op.NewClose(ores.FD))
	require.NoError(t, cres.Err)

	cres2 := await[op.CloseResult](t, d, op.NewClose(ores.FD))
	assert.Error(t, cres2.Err, "closing an already-closed fd must report EBADF-class")
}
