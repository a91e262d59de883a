package concurrency

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPinCurrentThread_RejectsBadCPU(t *testing.T) {
	require.ErrorIs(t, PinCurrentThread(-1), ErrInvalidCPU)
	require.ErrorIs(t, PinCurrentThread(NumCPUs()), ErrInvalidCPU)
}

func TestPinCurrentThread_ReportsPinnedCPU(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("getcpu is only reliable on linux")
	}
	if err := PinCurrentThread(0); err != nil {
		t.Skipf("pinning unavailable: %v", err)
	}
	defer func() { _ = UnpinCurrentThread() }()

	cpu, ok := CurrentCPU()
	require.True(t, ok)
	require.Equal(t, 0, cpu)
}
