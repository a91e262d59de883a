package affinity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/lfbuddy/internal/concurrency"
)

func TestPin_InvalidCPU(t *testing.T) {
	require.ErrorIs(t, Pin(-1), concurrency.ErrInvalidCPU)
	require.ErrorIs(t, Pin(Count()), concurrency.ErrInvalidCPU)
}

func TestRun(t *testing.T) {
	ran := false
	_, err := Run(0, func() { ran = true })
	if err != nil {
		t.Skipf("pinning unavailable: %v", err)
	}
	require.True(t, ran)
}

func TestRun_InvalidCPU(t *testing.T) {
	ran := false
	pinned, err := Run(-1, func() { ran = true })
	require.Error(t, err)
	require.False(t, pinned)
	require.False(t, ran)
}

func TestThread_ImplementsAffinity(t *testing.T) {
	var a Thread
	require.ErrorIs(t, a.Pin(-1), concurrency.ErrInvalidCPU)
}
