package hmalloc

import (
	"fmt"
	"io"
	"os"
	"sync"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/joshuapare/hmalloc/alloc"
	"github.com/joshuapare/hmalloc/internal/logger"
)

// ErrNotSegregated indicates a cache request on a coalescing allocator.
var ErrNotSegregated = errors.New("hmalloc: owned caches need the segregated architecture")

// Allocator is one allocator instance: a segregated heap with a pool of idle
// caches, or a coalescing arena. It is safe for concurrent use.
type Allocator struct {
	arch  Architecture
	diag  io.Writer
	heap  *alloc.Heap
	arena *alloc.Arena

	mu   sync.Mutex
	idle []*alloc.Cache
}

// New creates an allocator from cfg.
func New(cfg Config) (*Allocator, error) {
	if cfg.Architecture == "" {
		cfg.Architecture = Segregated
	}
	if cfg.Diagnostics == nil {
		cfg.Diagnostics = os.Stderr
	}

	a := &Allocator{arch: cfg.Architecture, diag: cfg.Diagnostics}
	switch cfg.Architecture {
	case Segregated:
		a.heap = alloc.NewHeap(cfg.Engine)
	case Coalescing:
		a.arena = alloc.NewArena(cfg.Engine)
	default:
		return nil, errors.Wrapf(ErrBadConfig, "architecture %q", cfg.Architecture)
	}

	logger.Debug("allocator created",
		"arch", string(a.arch),
		"slab_pages", cfg.Engine.SlabPages,
		"hardened", cfg.Engine.Hardened,
		"validate", cfg.Engine.Validate)
	return a, nil
}

// Architecture returns the design behind a.
func (a *Allocator) Architecture() Architecture { return a.arch }

// Malloc returns a pointer to at least n usable bytes. Malloc(0) returns a
// valid minimum-size chunk.
func (a *Allocator) Malloc(n int) unsafe.Pointer {
	var (
		p   unsafe.Pointer
		err error
	)
	if a.arena != nil {
		p, err = a.arena.Alloc(n)
	} else {
		c := a.borrow()
		p, err = c.Alloc(n)
		a.giveBack(c)
	}
	if err != nil {
		a.fatal("malloc", err)
	}
	return p
}

// Free releases p. Free(nil) is a no-op.
func (a *Allocator) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	var err error
	if a.arena != nil {
		err = a.arena.Free(p)
	} else {
		c := a.borrow()
		err = c.Free(p)
		a.giveBack(c)
	}
	if err != nil {
		a.fatal("free", err)
	}
}

// Realloc resizes p to hold n bytes.
//
//   - p == nil: same as Malloc(n)
//   - n == 0: same as Free(p), returns nil
//   - the chunk already holds n bytes: returns p
//   - otherwise: moves the contents to a new chunk and frees p
func (a *Allocator) Realloc(p unsafe.Pointer, n int) unsafe.Pointer {
	var (
		q   unsafe.Pointer
		err error
	)
	if a.arena != nil {
		q, err = a.arena.Realloc(p, n)
	} else {
		c := a.borrow()
		q, err = c.Realloc(p, n)
		a.giveBack(c)
	}
	if err != nil {
		a.fatal("realloc", err)
	}
	return q
}

// NewCache returns a cache owned by the caller. Close it when done.
func (a *Allocator) NewCache() (*alloc.Cache, error) {
	if a.heap == nil {
		return nil, ErrNotSegregated
	}
	return a.heap.NewCache(), nil
}

// Stats returns a snapshot of the allocator's counters.
func (a *Allocator) Stats() Stats {
	if a.arena != nil {
		return a.arena.Stats()
	}
	return a.heap.Stats()
}

// PrintStats writes the counters to the diagnostic stream.
func (a *Allocator) PrintStats() {
	a.Stats().Fprint(a.diag)
}

// Validate checks free-storage invariants. It only inspects the coalescing
// free list; segregated storage has no ordering to check.
func (a *Allocator) Validate() error {
	if a.arena != nil {
		return a.arena.Validate()
	}
	return nil
}

// borrow takes an idle cache or creates one.
func (a *Allocator) borrow() *alloc.Cache {
	a.mu.Lock()
	if n := len(a.idle); n > 0 {
		c := a.idle[n-1]
		a.idle = a.idle[:n-1]
		a.mu.Unlock()
		return c
	}
	a.mu.Unlock()
	return a.heap.NewCache()
}

func (a *Allocator) giveBack(c *alloc.Cache) {
	a.mu.Lock()
	a.idle = append(a.idle, c)
	a.mu.Unlock()
}

// FatalError is the panic value raised when the engine reports an
// unrecoverable failure.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("hmalloc: fatal %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// fatal reports err with the allocator's state and panics.
func (a *Allocator) fatal(op string, err error) {
	logger.Error("allocator failure", "op", op, "err", err.Error())

	fmt.Fprintf(a.diag, "hmalloc: fatal %s: %+v\n", op, err)
	a.Stats().Fprint(a.diag)
	if a.arena != nil {
		a.arena.DumpFreeList(a.diag)
	}
	panic(&FatalError{Op: op, Err: err})
}
