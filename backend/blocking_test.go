package backend

import (
	"testing"
	"time"

	"github.com/ehrlich-b/lio/op"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockingState_SubmitAndWait(t *testing.T) {
	s := NewBlockingState(2, 8)
	defer s.Close()
	submitter, driver := s.Split()

	require.NoError(t, submitter.Submit(1, op.NewNop()))

	timeout := 2 * time.Second
	completions, err := driver.WaitTimeout(nil, &timeout)
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Equal(t, uint64(1), completions[0].ID)
	assert.Equal(t, int64(0), completions[0].Raw)
}

func TestBlockingState_WaitTimeoutZeroNonBlocking(t *testing.T) {
	s := NewBlockingState(1, 4)
	defer s.Close()
	_, driver := s.Split()

	zero := time.Duration(0)
	completions, err := driver.WaitTimeout(nil, &zero)
	require.NoError(t, err)
	assert.Empty(t, completions)
}

func TestBlockingState_SubmitErrShutdownAfterClose(t *testing.T) {
	s := NewBlockingState(1, 4)
	submitter, _ := s.Split()
	require.NoError(t, s.Close())

	err := submitter.Submit(1, op.NewNop())
	assert.Equal(t, SubmitErrShutdown, err)
}
