package vmem

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hmalloc/internal/format"
)

func TestMapUnmapOS(t *testing.T) {
	m := OS()
	b, err := m.Map(2 * format.PageUnit)
	require.NoError(t, err)
	require.Len(t, b, 2*format.PageUnit)

	// Fresh mappings are zero-filled and page-aligned.
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not zero: 0x%x", i, v)
		}
	}
	require.Zero(t, uintptr(unsafe.Pointer(&b[0]))&format.PageUnitMask)

	// Writable end to end.
	b[0] = 0xAA
	b[len(b)-1] = 0xBB
	require.Equal(t, byte(0xAA), b[0])

	require.NoError(t, m.Unmap(b))
}

func TestMapRejectsBadLength(t *testing.T) {
	for _, size := range []int{0, -format.PageUnit, 100, format.PageUnit + 1} {
		_, err := OS().Map(size)
		require.ErrorIs(t, err, ErrBadLength, "size=%d", size)
	}
}

func TestUnmapReconstructedSlice(t *testing.T) {
	// The allocator only keeps the base address and length of a mapping; a
	// slice rebuilt from those must be accepted by Unmap.
	m := OS()
	b, err := m.Map(format.PageUnit)
	require.NoError(t, err)

	base := unsafe.Pointer(&b[0])
	rebuilt := unsafe.Slice((*byte)(base), format.PageUnit)
	require.NoError(t, m.Unmap(rebuilt))
}

func TestHeapMapper(t *testing.T) {
	h := NewHeap()
	b, err := h.Map(format.PageUnit)
	require.NoError(t, err)
	require.Len(t, b, format.PageUnit)
	require.Zero(t, uintptr(unsafe.Pointer(&b[0]))&format.PageUnitMask)
	require.Equal(t, 1, h.Regions())

	require.NoError(t, h.Unmap(b))
	require.Equal(t, 0, h.Regions())
	require.ErrorIs(t, h.Unmap(b), ErrNotMapped)
}

func TestLimited(t *testing.T) {
	l := Limit(NewHeap(), 3)

	a, err := l.Map(2 * format.PageUnit)
	require.NoError(t, err)
	require.Equal(t, 2, l.Pages())

	_, err = l.Map(2 * format.PageUnit)
	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, 2, l.Pages(), "failed map must not consume budget")

	b, err := l.Map(format.PageUnit)
	require.NoError(t, err)
	require.Equal(t, 3, l.Pages())

	require.NoError(t, l.Unmap(a))
	require.Equal(t, 1, l.Pages())
	require.NoError(t, l.Unmap(b))
	require.Equal(t, 0, l.Pages())
}
