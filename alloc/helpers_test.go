package alloc

import (
	"bytes"
	"sort"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hmalloc/internal/format"
)

func newTestCache(t *testing.T, cfg Config) (*Heap, *Cache) {
	t.Helper()
	h := NewHeap(cfg)
	c := h.NewCache()
	t.Cleanup(func() { _ = c.Close() })
	return h, c
}

func fill(p unsafe.Pointer, n int, b byte) {
	buf := Bytes(p, n)
	for i := range buf {
		buf[i] = b
	}
}

func requireFilled(t *testing.T, p unsafe.Pointer, n int, b byte) {
	t.Helper()
	require.Equal(t, bytes.Repeat([]byte{b}, n), Bytes(p, n))
}

type span struct{ lo, hi uintptr }

// requireDisjoint checks that the chunks behind ptrs (headers included) never overlap.
func requireDisjoint(t *testing.T, ptrs []unsafe.Pointer) {
	t.Helper()
	spans := make([]span, 0, len(ptrs))
	for _, p := range ptrs {
		lo := uintptr(format.HeaderOf(p))
		spans = append(spans, span{lo: lo, hi: lo + uintptr(UsableSize(p)+format.HeaderSize)})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].lo < spans[j].lo })
	for i := 1; i < len(spans); i++ {
		require.LessOrEqual(t, spans[i-1].hi, spans[i].lo, "chunk %d overlaps chunk %d", i-1, i)
	}
}
