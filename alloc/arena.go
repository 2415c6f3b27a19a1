package alloc

import (
	"io"
	"sync"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/joshuapare/hmalloc/internal/format"
	"github.com/joshuapare/hmalloc/internal/logger"
)

// Arena is the coalescing architecture: one address-ordered FreeList,
// first-fit placement, split on allocation, merge on release. A single
// mutex serializes every list operation.
type Arena struct {
	src      *SlabSource
	policy   chunkPolicy
	grow     int
	validate bool

	mu    sync.Mutex
	list  FreeList
	stats counters
}

var _ Allocator = (*Arena)(nil)

// NewArena creates a coalescing arena.
func NewArena(cfg Config) *Arena {
	cfg = cfg.withDefaults()
	return &Arena{
		src:      NewSlabSource(cfg.Mapper, cfg.SlabPages),
		policy:   chunkPolicy{hardened: cfg.Hardened},
		grow:     cfg.GrowPages,
		validate: cfg.Validate,
	}
}

// nodeSize returns the chunk size the arena carves for trueSize bytes.
func nodeSize(trueSize int) uintptr {
	return uintptr(max(format.AlignWord(trueSize), format.MinNodeSize))
}

// Alloc returns a chunk with at least n usable bytes.
func (a *Arena) Alloc(n int) (unsafe.Pointer, error) {
	size, ok := format.TrueSize(n)
	if !ok {
		return nil, errors.Wrapf(ErrNegativeSize, "n=%d", n)
	}
	if isLarge(uintptr(size)) {
		p, err := allocLarge(a.src, a.policy, size)
		if err != nil {
			return nil, err
		}
		a.stats.allocs.Inc()
		return p, nil
	}

	want := nodeSize(size)

	a.mu.Lock()
	defer a.mu.Unlock()

	c := a.list.Take(want)
	if c == nil {
		if err := a.growLocked(int(want)); err != nil {
			return nil, err
		}
		if c = a.list.Take(want); c == nil {
			return nil, errors.Wrapf(ErrOrderViolation, "no fit for %d bytes after growing", want)
		}
	}
	a.stats.allocs.Inc()
	a.stats.freeLen.Store(int64(a.list.Len()))

	p := c.payload()
	a.policy.stamp(p, c.size)
	return p, nil
}

// growLocked maps enough page units for need bytes and merges them into the list.
func (a *Arena) growLocked(need int) error {
	pages := max(a.grow, format.PagesFor(need))
	base, err := a.src.MapPages(pages)
	if err != nil {
		return err
	}
	n := nodeAt(base)
	n.size = uintptr(pages * format.PageUnit)
	n.next = nil
	if err := a.list.Insert(n); err != nil {
		return err
	}
	a.list.Coalesce()

	if logAlloc {
		logger.Debug("arena grown", "pages", pages, "nodes", a.list.Len())
	}
	return nil
}

// Free inserts p's chunk into the list and merges it with its neighbours.
func (a *Arena) Free(p unsafe.Pointer) error {
	if p == nil {
		return nil
	}
	size, err := a.policy.size(p)
	if err != nil {
		return err
	}
	if isLargeChunk(size) {
		if err := freeLarge(a.src, p, size); err != nil {
			return err
		}
		a.stats.frees.Inc()
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	c := chunkOf(p)
	c.size = size
	if err := a.list.Insert(c); err != nil {
		return err
	}
	a.list.Coalesce()
	if a.validate {
		if err := a.list.Validate(); err != nil {
			return err
		}
	}
	a.stats.frees.Inc()
	a.stats.freeLen.Store(int64(a.list.Len()))
	return nil
}

// Realloc resizes p to hold n bytes; see Cache.Realloc.
func (a *Arena) Realloc(p unsafe.Pointer, n int) (unsafe.Pointer, error) {
	return resize(a, a.policy, p, n)
}

// Validate checks the free list's ordering invariants.
func (a *Arena) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.list.Validate()
}

// DumpFreeList writes the free list to w.
func (a *Arena) DumpFreeList(w io.Writer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.list.Dump(w)
}

// FreeBytes returns the number of bytes held on the free list.
func (a *Arena) FreeBytes() uintptr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.list.FreeBytes()
}

// Source returns the arena's slab source.
func (a *Arena) Source() *SlabSource { return a.src }

// Stats returns a snapshot of the arena's counters.
func (a *Arena) Stats() Stats {
	return Stats{
		PagesMapped:   a.src.PagesMapped(),
		PagesUnmapped: a.src.PagesUnmapped(),
		Allocs:        a.stats.allocs.Load(),
		Frees:         a.stats.frees.Load(),
		FreeLength:    a.stats.freeLen.Load(),
	}
}
