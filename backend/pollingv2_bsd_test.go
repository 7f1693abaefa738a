//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package backend

import (
	"testing"
	"time"

	"github.com/ehrlich-b/lio/op"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPollingV2_NopSelfCompletes(t *testing.T) {
	s, err := NewPollingV2State()
	require.NoError(t, err)
	defer s.Close()
	submitter, driver := s.Split()

	require.NoError(t, submitter.Submit(1, op.NewNop()))

	timeout := 2 * time.Second
	completions, err := driver.WaitTimeout(nil, &timeout)
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Equal(t, uint64(1), completions[0].ID)
}

func TestPollingV2_PipeReadReadiness(t *testing.T) {
	s, err := NewPollingV2State()
	require.NoError(t, err)
	defer s.Close()
	submitter, driver := s.Split()

	fds := make([]int, 2)
	require.NoError(t, unix.Pipe(fds))
	require.NoError(t, unix.SetNonblock(fds[0], true))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	buf := make([]byte, 4)
	r := op.NewRead(int32(fds[0]), buf, 0)
	require.NoError(t, submitter.Submit(1, r))

	_, err = unix.Write(fds[1], []byte("PING"))
	require.NoError(t, err)

	timeout := 2 * time.Second
	completions, err := driver.WaitTimeout(nil, &timeout)
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Equal(t, uint64(1), completions[0].ID)
	assert.Equal(t, int64(4), completions[0].Raw)
}

func TestPollingV2_Timeout(t *testing.T) {
	s, err := NewPollingV2State()
	require.NoError(t, err)
	defer s.Close()
	submitter, driver := s.Split()

	to := op.NewTimeout(30 * time.Millisecond)
	require.NoError(t, submitter.Submit(1, to))

	timeout := 2 * time.Second
	completions, err := driver.WaitTimeout(nil, &timeout)
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Equal(t, uint64(1), completions[0].ID)
	assert.Equal(t, int64(0), completions[0].Raw)
}

func TestPollingV2_NotifyWakesBlockedWait(t *testing.T) {
	s, err := NewPollingV2State()
	require.NoError(t, err)
	defer s.Close()
	submitter, driver := s.Split()

	done := make(chan struct{})
	go func() {
		defer close(done)
		longTimeout := 5 * time.Second
		completions, err := driver.WaitTimeout(nil, &longTimeout)
		assert.NoError(t, err)
		assert.Empty(t, completions)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, submitter.Notify())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify did not wake the blocked WaitTimeout call")
	}
}
