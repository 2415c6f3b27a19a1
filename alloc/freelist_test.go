//go:build linux || darwin

package alloc

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hmalloc/internal/format"
	"github.com/joshuapare/hmalloc/internal/vmem"
)

// mapNodes maps one page and returns a node factory for offsets inside it.
func mapNodes(t *testing.T) func(off, size uintptr) *node {
	t.Helper()
	src := NewSlabSource(vmem.OS(), 1)
	base, err := src.MapPages(1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.UnmapPages(base, 1) })

	return func(off, size uintptr) *node {
		n := nodeAt(unsafe.Add(base, off))
		n.size = size
		return n
	}
}

func listAddrs(l *FreeList) []uintptr {
	var out []uintptr
	for n := l.head; n != nil; n = n.next {
		out = append(out, n.addr())
	}
	return out
}

func Test_FreeListInsertOrders(t *testing.T) {
	at := mapNodes(t)
	var l FreeList

	c := at(512, 32)
	a := at(0, 32)
	d := at(1024, 32)
	b := at(256, 32)
	for _, n := range []*node{c, a, d, b} {
		require.NoError(t, l.Insert(n))
	}

	require.Equal(t, []uintptr{a.addr(), b.addr(), c.addr(), d.addr()}, listAddrs(&l))
	require.Equal(t, 4, l.Len())
	require.NoError(t, l.Validate())
}

func Test_FreeListInsertRejectsOverlap(t *testing.T) {
	at := mapNodes(t)
	var l FreeList

	require.NoError(t, l.Insert(at(64, 64)))
	require.NoError(t, l.Insert(at(256, 64)))

	require.ErrorIs(t, l.Insert(at(64, 64)), ErrOrderViolation, "same address")
	require.ErrorIs(t, l.Insert(at(96, 16)), ErrOrderViolation, "inside previous node")
	require.ErrorIs(t, l.Insert(at(224, 64)), ErrOrderViolation, "runs into next node")
	require.ErrorIs(t, l.Insert(at(32, 64)), ErrOrderViolation, "runs into head")
	require.Equal(t, 2, l.Len())
}

func Test_FreeListCoalesceRun(t *testing.T) {
	at := mapNodes(t)
	var l FreeList

	// Three contiguous nodes, a gap, then two more.
	for _, n := range []*node{at(0, 64), at(64, 128), at(192, 32), at(512, 64), at(576, 64)} {
		require.NoError(t, l.Insert(n))
	}
	require.ErrorIs(t, l.Validate(), ErrOrderViolation)

	require.Equal(t, 3, l.Coalesce())
	require.Equal(t, 2, l.Len())
	require.NoError(t, l.Validate())
	require.Equal(t, uintptr(224+128), l.FreeBytes())
	require.Equal(t, uintptr(224), l.head.size)
	require.Equal(t, uintptr(128), l.head.next.size)
}

func Test_FreeListTakeFirstFit(t *testing.T) {
	at := mapNodes(t)
	var l FreeList

	small := at(0, 48)
	big := at(128, 512)
	require.NoError(t, l.Insert(small))
	require.NoError(t, l.Insert(big))

	got := l.Take(64)
	require.Equal(t, big.addr(), got.addr())
	require.Equal(t, uintptr(64), got.size)
	require.Equal(t, 2, l.Len())
	require.Equal(t, []uintptr{small.addr(), big.addr() + 64}, listAddrs(&l))
	require.NoError(t, l.Validate())

	got = l.Take(40)
	require.Equal(t, small.addr(), got.addr())
	require.Equal(t, uintptr(48), got.size, "residual of 8 is granted with the chunk")
	require.Equal(t, 1, l.Len())

	require.Nil(t, l.Take(4096))
}

func Test_FreeListTakeSplitBoundary(t *testing.T) {
	at := mapNodes(t)

	var l FreeList
	require.NoError(t, l.Insert(at(0, 64)))
	got := l.Take(64 - uintptr(format.MinNodeSize))
	require.Equal(t, uintptr(64), got.size)
	require.Zero(t, l.Len())

	require.NoError(t, l.Insert(at(512, 64)))
	got = l.Take(64 - uintptr(format.MinNodeSize) - 8)
	require.Equal(t, uintptr(40), got.size)
	require.Equal(t, 1, l.Len())
	require.Equal(t, uintptr(24), l.head.size)
}

func Test_FreeListValidateLength(t *testing.T) {
	at := mapNodes(t)
	var l FreeList

	require.NoError(t, l.Insert(at(0, 32)))
	l.length = 3
	require.ErrorIs(t, l.Validate(), ErrOrderViolation)
}

func Test_FreeListDump(t *testing.T) {
	at := mapNodes(t)
	var l FreeList
	require.NoError(t, l.Insert(at(0, 32)))
	require.NoError(t, l.Insert(at(64, 40)))

	var buf bytes.Buffer
	l.Dump(&buf)
	out := buf.String()
	require.Contains(t, out, "free list: 2 nodes, 72 bytes")
	require.Contains(t, out, "[1] addr=")
	require.Contains(t, out, "size=40")
}
