package cpuid

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixedAndFunc(t *testing.T) {
	require.Equal(t, 3, Fixed{ID: 3, N: 4}.Current())
	require.Equal(t, 1, Fixed{ID: 0}.Count())

	n := 0
	f := Func{F: func() int { n++; return n }, N: 8}
	require.Equal(t, 1, f.Current())
	require.Equal(t, 2, f.Current())
	require.Equal(t, 8, f.Count())
}

func TestProc_InRange(t *testing.T) {
	p := Proc()
	var wg sync.WaitGroup
	for g := 0; g < 32; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := p.Current()
				if id < 0 || id >= runtime.GOMAXPROCS(0) {
					t.Errorf("P id %d outside [0,%d)", id, runtime.GOMAXPROCS(0))
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestDefault_NonNegative(t *testing.T) {
	c := Default()
	require.GreaterOrEqual(t, c.Current(), 0)
	require.GreaterOrEqual(t, c.Count(), 1)
}
