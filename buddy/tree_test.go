package buddy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTreeArithmetic(t *testing.T) {
	a := &Allocator{rootOrder: 4}
	for order := 0; order <= 4; order++ {
		for off := 0; off < 16; off += 1 << order {
			n := a.node(off, order)
			require.Equal(t, order, a.orderOf(n))
			require.Equal(t, off, a.offsetOf(n))
			if order < 4 {
				require.Equal(t, a.node(off&^(1<<(order+1)-1), order+1), n>>1, "parent of %d", n)
				require.Equal(t, a.node(off^(1<<order), order), n^1, "buddy of %d", n)
			}
		}
	}
	require.Equal(t, uint32(1), a.node(0, 4))
	require.Equal(t, uint32(31), a.node(15, 0))
}

func TestLog2(t *testing.T) {
	cases := []struct{ n, floor, ceil int }{
		{1, 0, 0}, {2, 1, 1}, {3, 1, 2}, {4, 2, 2}, {13, 3, 4}, {4096, 12, 12}, {4097, 12, 13},
	}
	for _, c := range cases {
		require.Equal(t, c.floor, floorLog2(c.n), "floor %d", c.n)
		require.Equal(t, c.ceil, ceilLog2(c.n), "ceil %d", c.n)
	}
}
