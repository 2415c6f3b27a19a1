package alloc

import (
	"sync"

	"github.com/joshuapare/hmalloc/internal/format"
	"github.com/joshuapare/hmalloc/internal/logger"
)

// Heap is the shared half of the segregated architecture. It owns the slab
// source, a depot of chunks handed back by closed caches, and the registry
// of open caches whose counters make up Stats.
//
// Heap is safe for concurrent use; the caches it creates are not.
type Heap struct {
	src    *SlabSource
	policy chunkPolicy

	mu      sync.Mutex
	depot   [format.NumClasses]freeStack
	caches  map[*Cache]struct{}
	retired Stats // allocs and frees of closed caches
}

// freeStack is a singly linked LIFO of same-class chunks.
type freeStack struct {
	head  *node
	count int
}

// NewHeap creates a segregated heap.
func NewHeap(cfg Config) *Heap {
	cfg = cfg.withDefaults()
	return &Heap{
		src:    NewSlabSource(cfg.Mapper, cfg.SlabPages),
		policy: chunkPolicy{hardened: cfg.Hardened},
		caches: make(map[*Cache]struct{}),
	}
}

// NewCache creates a cache owned by the calling goroutine.
func (h *Heap) NewCache() *Cache {
	c := &Cache{heap: h}
	h.mu.Lock()
	h.caches[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// Caches returns the number of open caches.
func (h *Heap) Caches() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.caches)
}

// DepotLen returns the number of class chunks parked in the depot.
func (h *Heap) DepotLen(class int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.depot[class].count
}

// Source returns the heap's slab source.
func (h *Heap) Source() *SlabSource { return h.src }

// refill supplies a fresh list of class chunks: at most one slab's worth
// from the depot, or else a newly mapped slab.
func (h *Heap) refill(class int) (*node, int, error) {
	h.mu.Lock()
	d := &h.depot[class]
	if d.head != nil {
		want := ChunksPerSlab(class, h.src.SlabPages())
		head := d.head
		tail, n := head, 1
		for n < want && tail.next != nil {
			tail = tail.next
			n++
		}
		d.head = tail.next
		d.count -= n
		tail.next = nil
		h.mu.Unlock()
		return head, n, nil
	}
	h.mu.Unlock()

	return h.src.Acquire(class)
}

// retire moves a closing cache's free chunks into the depot and folds its
// counters into the heap totals.
func (h *Heap) retire(c *Cache) {
	h.mu.Lock()
	defer h.mu.Unlock()

	moved := 0
	for class, head := range c.lists {
		if head == nil {
			continue
		}
		tail, n := head, 1
		for tail.next != nil {
			tail = tail.next
			n++
		}
		d := &h.depot[class]
		tail.next = d.head
		d.head = head
		d.count += n
		moved += n
	}
	h.retired.Allocs += c.stats.allocs.Load()
	h.retired.Frees += c.stats.frees.Load()
	delete(h.caches, c)

	if logAlloc {
		logger.Debug("cache retired", "chunks", moved, "open", len(h.caches))
	}
}

// Stats returns a snapshot across the depot and every open cache.
func (h *Heap) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := Stats{
		PagesMapped:   h.src.PagesMapped(),
		PagesUnmapped: h.src.PagesUnmapped(),
		Allocs:        h.retired.Allocs,
		Frees:         h.retired.Frees,
	}
	for i := range h.depot {
		s.FreeLength += int64(h.depot[i].count)
	}
	for c := range h.caches {
		s.Allocs += c.stats.allocs.Load()
		s.Frees += c.stats.frees.Load()
		s.FreeLength += c.stats.freeLen.Load()
	}
	return s
}
