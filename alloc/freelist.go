package alloc

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/joshuapare/hmalloc/internal/format"
)

// FreeList is a singly linked list of free chunks kept in strictly
// increasing address order. After Coalesce no two nodes are contiguous.
//
// FreeList is not safe for concurrent use; Arena wraps it with a mutex.
type FreeList struct {
	head   *node
	length int
}

// Len returns the number of nodes.
func (l *FreeList) Len() int { return l.length }

// FreeBytes returns the total size of all nodes.
func (l *FreeList) FreeBytes() uintptr {
	var total uintptr
	for n := l.head; n != nil; n = n.next {
		total += n.size
	}
	return total
}

// Insert links n into its address-ordered position. It fails with
// ErrOrderViolation if n overlaps a node already on the list, which is how a
// double release shows up.
func (l *FreeList) Insert(n *node) error {
	if l.head == nil || n.addr() < l.head.addr() {
		if l.head != nil && n.end() > l.head.addr() {
			return l.overlap(n, l.head)
		}
		n.next = l.head
		l.head = n
		l.length++
		return nil
	}

	prev := l.head
	for prev.next != nil && prev.next.addr() < n.addr() {
		prev = prev.next
	}
	if prev.end() > n.addr() {
		return l.overlap(prev, n)
	}
	if prev.next != nil && n.end() > prev.next.addr() {
		return l.overlap(n, prev.next)
	}
	n.next = prev.next
	prev.next = n
	l.length++
	return nil
}

func (l *FreeList) overlap(a, b *node) error {
	return errors.Wrapf(ErrOrderViolation, "node %#x+%d overlaps node %#x+%d", a.addr(), a.size, b.addr(), b.size)
}

// Coalesce merges every run of contiguous nodes in one left-to-right pass
// and returns the number of merges. After a merge the pass stays on the
// grown node so that runs of three or more collapse fully.
func (l *FreeList) Coalesce() int {
	merged := 0
	for cur := l.head; cur != nil && cur.next != nil; {
		if cur.end() == cur.next.addr() {
			cur.size += cur.next.size
			cur.next = cur.next.next
			l.length--
			merged++
			continue
		}
		cur = cur.next
	}
	return merged
}

// Take unlinks the first node of at least size bytes and returns it sized
// to exactly what it grants. When the residual exceeds format.MinNodeSize
// the tail stays on the list in the node's place; otherwise the whole node
// is granted. Take returns nil if nothing fits.
func (l *FreeList) Take(size uintptr) *node {
	var prev *node
	for n := l.head; n != nil; prev, n = n, n.next {
		if n.size < size {
			continue
		}

		next := n.next
		if rest := n.size - size; rest > uintptr(format.MinNodeSize) {
			tail := n.at(size)
			tail.size = rest
			tail.next = next
			next = tail
			n.size = size
		} else {
			l.length--
		}

		if prev == nil {
			l.head = next
		} else {
			prev.next = next
		}
		n.next = nil
		return n
	}
	return nil
}

// Validate checks that addresses strictly increase, that no nodes overlap,
// that no two nodes are contiguous, and that the length matches.
func (l *FreeList) Validate() error {
	count := 0
	for n := l.head; n != nil; n = n.next {
		count++
		if n.size < uintptr(format.MinNodeSize) {
			return errors.Wrapf(ErrOrderViolation, "node %#x has size %d", n.addr(), n.size)
		}
		next := n.next
		if next == nil {
			break
		}
		switch {
		case next.addr() <= n.addr():
			return errors.Wrapf(ErrOrderViolation, "node %#x follows node %#x", next.addr(), n.addr())
		case n.end() > next.addr():
			return l.overlap(n, next)
		case n.end() == next.addr():
			return errors.Wrapf(ErrOrderViolation, "nodes %#x and %#x are contiguous", n.addr(), next.addr())
		}
	}
	if count != l.length {
		return errors.Wrapf(ErrOrderViolation, "walked %d nodes, length is %d", count, l.length)
	}
	return nil
}

// Dump writes one line per node to w.
func (l *FreeList) Dump(w io.Writer) {
	fmt.Fprintf(w, "free list: %d nodes, %d bytes\n", l.length, l.FreeBytes())
	i := 0
	for n := l.head; n != nil; n = n.next {
		fmt.Fprintf(w, "  [%d] addr=%#x size=%d end=%#x\n", i, n.addr(), n.size, n.end())
		i++
	}
}
