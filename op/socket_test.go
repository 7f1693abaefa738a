package op

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSocketListenAcceptConnectSendRecv(t *testing.T) {
	s := NewSocket(unix.AF_INET, unix.SOCK_STREAM, 0)
	raw := s.ExecuteBlocking()
	require.GreaterOrEqual(t, raw, int64(0))
	sres := s.Finish(raw).(SocketResult)
	require.NoError(t, sres.Err)
	listenerFD := sres.FD
	defer unix.Close(int(listenerFD))

	addr := &unix.SockaddrInet4{Port: 0}
	copy(addr.Addr[:], []byte{127, 0, 0, 1})
	b := NewBind(listenerFD, addr)
	raw = b.ExecuteBlocking()
	require.GreaterOrEqual(t, raw, int64(0))

	bound, err := unix.Getsockname(int(listenerFD))
	require.NoError(t, err)
	boundAddr := bound.(*unix.SockaddrInet4)

	l := NewListen(listenerFD, 16)
	raw = l.ExecuteBlocking()
	require.GreaterOrEqual(t, raw, int64(0))

	clientSock := NewSocket(unix.AF_INET, unix.SOCK_STREAM, 0)
	raw = clientSock.ExecuteBlocking()
	require.GreaterOrEqual(t, raw, int64(0))
	clientFD := clientSock.Finish(raw).(SocketResult).FD
	defer unix.Close(int(clientFD))

	connectAddr := &unix.SockaddrInet4{Port: boundAddr.Port}
	copy(connectAddr.Addr[:], boundAddr.Addr[:])
	c := NewConnect(clientFD, connectAddr)
	raw = c.ExecuteBlocking()
	// Non-blocking connect against a local, already-listening socket often
	// completes with EINPROGRESS on the first call.
	if raw < 0 {
		assert.True(t, IsTemporary(raw))
		deadline := time.Now().Add(2 * time.Second)
		for raw < 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
			raw = c.ExecuteBlocking()
		}
	}
	require.GreaterOrEqual(t, raw, int64(0))

	a := NewAccept(listenerFD)
	var acceptedFD int32
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		raw = a.ExecuteBlocking()
		if !IsTemporary(raw) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.GreaterOrEqual(t, raw, int64(0))
	acceptedFD = a.Finish(raw).(AcceptResult).FD
	defer unix.Close(int(acceptedFD))

	sendOp := NewSend(clientFD, []byte("PING"), 0)
	raw = sendOp.ExecuteBlocking()
	require.GreaterOrEqual(t, raw, int64(0))

	recvBuf := make([]byte, 4)
	recvOp := NewRecv(acceptedFD, recvBuf, 0)
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		raw = recvOp.ExecuteBlocking()
		if !IsTemporary(raw) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, int64(4), raw)
	assert.Equal(t, "PING", string(recvBuf))

	sh := NewShutdown(acceptedFD, unix.SHUT_RDWR)
	raw = sh.ExecuteBlocking()
	assert.GreaterOrEqual(t, raw, int64(0))
	assert.True(t, sh.DetachSafe())
}

func TestTimeout(t *testing.T) {
	d := 50 * time.Millisecond
	to := NewTimeout(d)
	start := time.Now()
	raw := to.ExecuteBlocking()
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, d-5*time.Millisecond)
	res := to.Finish(raw).(TimeoutResult)
	assert.NoError(t, res.Err)
	assert.True(t, to.DetachSafe())
	assert.Equal(t, CapTimer, to.Capability().Kind)
}

func TestTimeout_ETimeMapsToSuccess(t *testing.T) {
	to := NewTimeout(10 * time.Millisecond)
	res := to.Finish(-int64(unix.ETIME)).(TimeoutResult)
	assert.NoError(t, res.Err)
}
