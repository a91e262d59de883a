package concurrency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newStack(t *testing.T, nodes int) (*Stack, *Links) {
	t.Helper()
	links, err := NewLinks(alignedBytes(LinksBytes(nodes)), nodes)
	require.NoError(t, err)
	stacks, err := NewStacks(alignedBytes(StacksBytes(1)), 1)
	require.NoError(t, err)
	return &stacks[0], links
}

func TestStack_LIFO(t *testing.T) {
	s, l := newStack(t, 8)
	require.True(t, s.Empty())

	for i := uint32(1); i <= 5; i++ {
		s.Push(l, i)
	}
	for want := uint32(5); want >= 1; want-- {
		got, ok := s.Pop(l)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
	_, ok := s.Pop(l)
	require.False(t, ok)
	require.True(t, s.Empty())
}

func TestStack_ConcurrentPushPop(t *testing.T) {
	const nodes = 4096
	s, l := newStack(t, nodes+1)

	var wg sync.WaitGroup
	const workers = 8
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 1 + w; i <= nodes; i += workers {
				s.Push(l, uint32(i))
			}
		}(w)
	}
	wg.Wait()

	seen := make([]int32, nodes+1)
	var mu sync.Mutex
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i, ok := s.Pop(l)
				if !ok {
					return
				}
				// Churn: push back every other node once to exercise the tag.
				mu.Lock()
				seen[i]++
				again := seen[i] == 1 && i%2 == 0
				mu.Unlock()
				if again {
					s.Push(l, i)
				}
			}
		}()
	}
	wg.Wait()

	for i := 1; i <= nodes; i++ {
		want := int32(1)
		if i%2 == 0 {
			want = 2
		}
		require.Equalf(t, want, seen[i], "node %d", i)
	}
}

func TestStack_Walk(t *testing.T) {
	s, l := newStack(t, 8)
	for i := uint32(1); i <= 3; i++ {
		s.Push(l, i)
	}

	var got []uint32
	require.True(t, s.Walk(l, 8, func(i uint32) bool {
		got = append(got, i)
		return true
	}))
	require.Equal(t, []uint32{3, 2, 1}, got)

	require.False(t, s.Walk(l, 2, func(uint32) bool { return true }), "limit reached")
}
