package alloc

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/joshuapare/hmalloc/internal/format"
)

// Cache is the goroutine-owned half of the segregated architecture: one LIFO
// free list per size class. Alloc and Free never lock; only a miss goes to
// the Heap.
//
// A Cache must not be used by more than one goroutine at a time. Call Close
// when the owner is done so its free chunks return to the heap.
type Cache struct {
	heap   *Heap
	lists  [format.NumClasses]*node
	counts [format.NumClasses]int
	stats  counters
	closed bool
}

var _ Allocator = (*Cache)(nil)

// Alloc returns a chunk with at least n usable bytes.
//
// Requests whose true size fits a class pop that class's list, refilling it
// on a miss. Larger requests get a dedicated mapping.
func (c *Cache) Alloc(n int) (unsafe.Pointer, error) {
	if c.closed {
		return nil, ErrClosed
	}
	size, ok := format.TrueSize(n)
	if !ok {
		return nil, errors.Wrapf(ErrNegativeSize, "n=%d", n)
	}

	if isLarge(uintptr(size)) {
		p, err := allocLarge(c.heap.src, c.heap.policy, size)
		if err != nil {
			return nil, err
		}
		c.stats.allocs.Inc()
		return p, nil
	}

	class := ClassIndex(size)
	if c.lists[class] == nil {
		if err := c.refill(class); err != nil {
			return nil, err
		}
	}

	head := c.lists[class]
	c.lists[class] = head.next
	c.counts[class]--
	c.stats.freeLen.Dec()
	c.stats.allocs.Inc()

	p := head.payload()
	c.heap.policy.stamp(p, uintptr(ClassSize(class)))
	return p, nil
}

func (c *Cache) refill(class int) error {
	head, n, err := c.heap.refill(class)
	if err != nil {
		return err
	}
	c.lists[class] = head
	c.counts[class] += n
	c.stats.freeLen.Add(int64(n))
	return nil
}

// Free returns p to this cache. The chunk need not have been allocated
// through this cache.
func (c *Cache) Free(p unsafe.Pointer) error {
	if p == nil {
		return nil
	}
	if c.closed {
		return ErrClosed
	}
	size, err := c.heap.policy.size(p)
	if err != nil {
		return err
	}

	if isLargeChunk(size) {
		if err := freeLarge(c.heap.src, p, size); err != nil {
			return err
		}
		c.stats.frees.Inc()
		return nil
	}

	class := ClassIndex(int(size))
	if ClassSize(class) != int(size) {
		return errors.Wrapf(ErrBadHeader, "ptr=%p size %d is not a class size", p, size)
	}

	n := chunkOf(p)
	n.size = size
	n.next = c.lists[class]
	c.lists[class] = n
	c.counts[class]++
	c.stats.freeLen.Inc()
	c.stats.frees.Inc()
	return nil
}

// Realloc resizes p to hold n bytes.
//
//   - p == nil: same as Alloc(n)
//   - n == 0: same as Free(p), returns nil
//   - chunk already large enough: returns p unchanged
//   - otherwise: allocates, copies the old usable bytes, frees p
func (c *Cache) Realloc(p unsafe.Pointer, n int) (unsafe.Pointer, error) {
	if c.closed {
		return nil, ErrClosed
	}
	return resize(c, c.heap.policy, p, n)
}

// Len returns the number of free chunks cached for class.
func (c *Cache) Len(class int) int {
	return c.counts[class]
}

// Stats returns this cache's counters together with the heap's page counters.
func (c *Cache) Stats() Stats {
	return Stats{
		PagesMapped:   c.heap.src.PagesMapped(),
		PagesUnmapped: c.heap.src.PagesUnmapped(),
		Allocs:        c.stats.allocs.Load(),
		Frees:         c.stats.frees.Load(),
		FreeLength:    c.stats.freeLen.Load(),
	}
}

// Close hands the cached chunks back to the heap. The cache is unusable
// afterwards. Close is idempotent.
func (c *Cache) Close() error {
	if c.closed {
		return nil
	}
	c.heap.retire(c)
	c.lists = [format.NumClasses]*node{}
	c.counts = [format.NumClasses]int{}
	c.stats.freeLen.Store(0)
	c.closed = true
	return nil
}
