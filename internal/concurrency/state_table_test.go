package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/lfbuddy/api"
)

func newTable(t *testing.T, n int) *StateTable {
	t.Helper()
	st, err := NewStateTable(alignedBytes(StateTableBytes(n)), n)
	require.NoError(t, err)
	return st
}

func TestStateTable_RejectsShortStorage(t *testing.T) {
	_, err := NewStateTable(alignedBytes(8), 4)
	require.ErrorIs(t, err, ErrBadStorage)

	_, err = NewStateTable(alignedBytes(16), 0)
	require.ErrorIs(t, err, ErrBadStorage)
}

func TestStateTable_TransitionsPreserveLink(t *testing.T) {
	st := newTable(t, 8)
	require.Equal(t, api.StateUnused, st.Load(3))

	require.True(t, st.Publish(3), "first publish must ask for a push")
	require.True(t, st.Linked(3))
	require.Equal(t, api.StateFree, st.Load(3))

	require.True(t, st.CompareAndSwap(3, api.StateFree, api.StateMerging))
	require.True(t, st.Linked(3), "claiming must not drop the link")
	require.False(t, st.CompareAndSwap(3, api.StateFree, api.StateAllocated))

	// Stale entry still threaded: publishing again must not push twice.
	require.False(t, st.Publish(3))

	require.True(t, st.Unlink(3, api.StateAllocated))
	require.False(t, st.Linked(3))
	require.Equal(t, api.StateAllocated, st.Load(3))
}

func TestStateTable_UnlinkStale(t *testing.T) {
	st := newTable(t, 4)
	st.Publish(1)
	st.Store(1, api.StateUnused)

	require.False(t, st.Unlink(1, api.StateAllocated))
	require.Equal(t, api.StateUnused, st.Load(1))
	require.False(t, st.Linked(1))
}

func TestStateTable_SingleWinner(t *testing.T) {
	st := newTable(t, 2)
	st.Seed(1, api.StateFree, false)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if st.CompareAndSwap(1, api.StateFree, api.StateAllocated) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins.Load())
}
