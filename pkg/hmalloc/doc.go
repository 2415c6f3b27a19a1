/*
Package hmalloc provides the malloc/free/realloc surface over the alloc engine.

# Quick Start

Allocate, use and release off-heap memory with the process-wide allocator:

	p := hmalloc.Malloc(256)
	buf := hmalloc.Bytes(p, 256)
	copy(buf, data)

	p = hmalloc.Realloc(p, 1024)
	hmalloc.Free(p)

# Architectures

Two designs sit behind the same surface:

  - Segregated (default): power-of-two size classes, per-owner caches, no locks
    on the hot path of an owned cache
  - Coalescing: one address-ordered free list, first-fit, merges neighbours

Select one with Config.Architecture or HMALLOC_ARCH=segregated|coalescing.

# Owned Caches

The package-level functions borrow an idle cache for every call, which costs a
short critical section. Goroutines that allocate heavily should own a cache:

	c, err := hmalloc.Default().NewCache()
	if err != nil {
	    return err
	}
	defer c.Close()

	p, err := c.Alloc(64)

# Failure Policy

Errors the engine cannot recover from (the OS refusing pages, a rejected
unmap, a corrupted free list, a hardened-mode double free) are fatal: the
allocator writes the failure and its counters to the diagnostic stream and
panics with a *FatalError.

# Environment

	HMALLOC_ARCH        segregated | coalescing
	HMALLOC_SLAB_PAGES  page units per slab
	HMALLOC_GROW_PAGES  page units per coalescing refill
	HMALLOC_HARDENED    tag live headers, report double free
	HMALLOC_VALIDATE    check free-list ordering on every release
	HMALLOC_LOG         enable diagnostic logging at this level
	HMALLOC_LOG_FORMAT  pretty | text | json
	HMALLOC_LOG_ALLOC   log slab, large-object and cache events
*/
package hmalloc
