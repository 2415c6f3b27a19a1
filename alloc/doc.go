// Package alloc implements the off-heap memory engine: size classes, slab
// acquisition from the OS, a segregated per-owner cache, a coalescing
// address-ordered free list, the large-object path and resize.
//
// # Overview
//
// Memory is obtained from the operating system in page units through an
// internal/vmem Mapper and handed out as raw chunks. Every chunk carries a
// one-word header immediately before the pointer returned to the caller; the
// header holds the chunk's true size (header included). Free chunks reuse
// their own storage as list nodes, so tracking free space costs nothing extra.
//
// # Architectures
//
// Segregated (Heap + Cache)
//
//   - 7 power-of-two size classes, 64B through 4KB
//   - each Cache is owned by one goroutine; Alloc and Free on a Cache never lock
//   - a cache miss refills one slab's worth of chunks, first from the heap's
//     depot (chunks left behind by closed caches), then from a fresh mapping
//   - no coalescing: all chunks of a class are interchangeable
//
// Coalescing (Arena)
//
//   - one address-ordered FreeList guarded by one mutex
//   - first-fit search, split when the residual can carry a node
//   - contiguous neighbours merged on every release
//
// Both architectures send requests whose true size exceeds the largest class
// (requests of LargeThreshold bytes or more) to a dedicated mapping that is
// unmapped on release.
//
// # Size Classes
//
//	Class 0:   64 bytes
//	Class 1:  128 bytes
//	Class 2:  256 bytes
//	Class 3:  512 bytes
//	Class 4:    1 KB
//	Class 5:    2 KB
//	Class 6:    4 KB  (one chunk per slab)
//	Large:    > 4 KB true size, rounded up to whole page units
//
// # Usage Example
//
//	h := alloc.NewHeap(alloc.DefaultConfig)
//	c := h.NewCache() // owned by this goroutine
//	defer c.Close()
//
//	p, err := c.Alloc(100)
//	if err != nil {
//	    return err
//	}
//	buf := alloc.Bytes(p, 100)
//	copy(buf, payload)
//
//	p, err = c.Realloc(p, 400)
//	...
//	err = c.Free(p)
//
// # Thread Safety
//
// Heap and Arena are safe for concurrent use. A Cache is not: it is the
// goroutine-owned half of the segregated architecture. Chunks may be freed
// through a different cache than the one that allocated them; they then
// belong to the freeing cache.
//
// # Errors
//
// Mapping failures (ErrMapFailed), unmapping failures (ErrUnmapFailed) and
// free-list corruption (ErrOrderViolation) are internal-consistency failures.
// The engine reports them as errors; pkg/hmalloc turns them into a fatal
// panic after printing diagnostic state. Double release and release of
// foreign pointers are undefined unless Config.Hardened is set.
package alloc
