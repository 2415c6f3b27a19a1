package alloc

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/joshuapare/hmalloc/internal/format"
)

// node is the in-place layout of a free chunk. The first word doubles as the
// chunk header, so a released chunk already carries its size; the second
// word links it into a free list.
//
// Nodes live in mapped memory outside the Go heap. The collector ignores the
// next pointers because they never point into the heap.
type node struct {
	size uintptr
	next *node
}

// nodeAt reinterprets the chunk starting at base as a free node.
func nodeAt(base unsafe.Pointer) *node {
	return (*node)(base)
}

// chunkOf returns the chunk whose payload is p.
func chunkOf(p unsafe.Pointer) *node {
	return nodeAt(format.HeaderOf(p))
}

func (n *node) base() unsafe.Pointer { return unsafe.Pointer(n) }
func (n *node) addr() uintptr        { return uintptr(unsafe.Pointer(n)) }
func (n *node) end() uintptr         { return n.addr() + n.size }

// payload returns the caller-visible pointer for the chunk.
func (n *node) payload() unsafe.Pointer {
	return format.PayloadOf(n.base())
}

// at returns the chunk off bytes past n.
func (n *node) at(off uintptr) *node {
	return nodeAt(unsafe.Add(n.base(), off))
}

// chunkPolicy stamps and checks chunk headers. In hardened mode live headers
// carry format.LiveTag.
type chunkPolicy struct {
	hardened bool
}

// stamp writes the header for a chunk of size bytes being handed out at p.
func (c chunkPolicy) stamp(p unsafe.Pointer, size uintptr) {
	if c.hardened {
		size |= format.LiveTag
	}
	format.PutHeader(p, size)
}

// size returns the true size recorded for the live chunk at p.
func (c chunkPolicy) size(p unsafe.Pointer) (uintptr, error) {
	word := format.ReadHeader(p)
	if c.hardened && word&format.LiveTag == 0 {
		return 0, errors.Wrapf(ErrDoubleFree, "ptr=%p header=%#x", p, word)
	}
	size := word &^ format.LiveTag
	if size < uintptr(format.MinNodeSize) || size&uintptr(format.WordAlignmentMask) != 0 {
		return 0, errors.Wrapf(ErrBadHeader, "ptr=%p header=%#x", p, word)
	}
	return size, nil
}
