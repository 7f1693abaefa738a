package opstore

import (
	"testing"

	"github.com/ehrlich-b/lio/op"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWaker is a hand-rolled fake Waker counting how many times it fired.
type fakeWaker struct {
	woken int
}

func (w *fakeWaker) Wake() { w.woken++ }

func TestStore_InsertGetTryExtract(t *testing.T) {
	s := NewStore(4)
	n := op.NewNop()
	id := s.Insert(StoredOp{Op: n})

	state, ok := s.State(id)
	require.True(t, ok)
	assert.Equal(t, StateWaiting, state)

	_, extracted := s.TryExtract(id)
	assert.False(t, extracted, "extracting before set_done must fail")

	require.True(t, s.SetDone(id, 42))
	state, ok = s.State(id)
	require.True(t, ok)
	assert.Equal(t, StateDone, state)

	raw, ok := s.TryExtract(id)
	require.True(t, ok)
	assert.Equal(t, int64(42), raw)

	state, ok = s.State(id)
	require.True(t, ok)
	assert.Equal(t, StateExtracted, state)

	_, ok = s.TryExtract(id)
	assert.False(t, ok, "a second extract on an already-extracted slot fails")
}

func TestStore_SetDonePanicsOutsideWaiting(t *testing.T) {
	s := NewStore(1)
	id := s.Insert(StoredOp{Op: op.NewNop()})
	require.True(t, s.SetDone(id, 0))

	assert.Panics(t, func() {
		s.SetDone(id, 1)
	})
}

func TestStore_WakerFiresOnSetDone(t *testing.T) {
	s := NewStore(1)
	w := &fakeWaker{}
	id := s.Insert(StoredOp{Op: op.NewNop(), Notifier: Notifier{Kind: NotifierWaker, Waker: w}})

	require.True(t, s.SetDone(id, 7))
	assert.Equal(t, 1, w.woken)
}

func TestStore_SetWakerOnAlreadyDoneFiresImmediately(t *testing.T) {
	s := NewStore(1)
	id := s.Insert(StoredOp{Op: op.NewNop()})
	require.True(t, s.SetDone(id, 7))

	w := &fakeWaker{}
	require.True(t, s.SetWaker(id, w))
	assert.Equal(t, 1, w.woken, "installing a waker on a Done slot must wake it right away")
}

func TestStore_CallbackConsumesSynchronouslyAndFreesSlot(t *testing.T) {
	s := NewStore(1)
	var got op.Result
	id := s.Insert(StoredOp{
		Op: op.NewClose(-1),
		Notifier: Notifier{Kind: NotifierCallback, Callback: func(result op.Result) {
			got = result
		}},
	})

	require.True(t, s.SetDone(id, 0))
	assert.Equal(t, op.CloseResult{}, got)

	_, ok := s.State(id)
	assert.False(t, ok, "a callback-driven completion must free its slot, not leave it Extracted")
}

func TestStore_RemoveBumpsGenerationInvalidatingOldID(t *testing.T) {
	s := NewStore(1)
	id := s.Insert(StoredOp{Op: op.NewNop()})
	require.True(t, s.Remove(id))

	_, ok := s.State(id)
	assert.False(t, ok, "a removed id's generation must no longer resolve")

	newID := s.Insert(StoredOp{Op: op.NewNop()})
	assert.NotEqual(t, id, newID, "reinsertion into a freed slot must mint a fresh id")

	state, ok := s.State(newID)
	require.True(t, ok)
	assert.Equal(t, StateWaiting, state)
}

func TestStore_UnknownIDOperationsFail(t *testing.T) {
	s := NewStore(1)
	assert.False(t, s.SetDone(9999, 0))
	assert.False(t, s.SetWaker(9999, &fakeWaker{}))
	_, ok := s.TryExtract(9999)
	assert.False(t, ok)
	_, ok = s.State(9999)
	assert.False(t, ok)
	assert.False(t, s.Remove(9999))
}

func TestStore_GetReadsWithoutMutating(t *testing.T) {
	s := NewStore(1)
	id := s.Insert(StoredOp{Op: op.NewNop()})

	var seenState State
	ok := s.Get(id, func(o op.Operation, n *Notifier, state State) {
		seenState = state
		assert.NotNil(t, o)
	})
	require.True(t, ok)
	assert.Equal(t, StateWaiting, seenState)

	state, ok := s.State(id)
	require.True(t, ok)
	assert.Equal(t, StateWaiting, state, "Get must not transition state")
}
