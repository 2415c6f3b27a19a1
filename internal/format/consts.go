// Package format holds the memory layout constants shared by every layer of
// the allocator: the page unit requested from the OS, the chunk header word
// that precedes every allocation, and the bounds of the size-class table.
// Keeping them here lets the engine, the OS mapping layer and the tests agree
// on one definition of each number.
package format

import "unsafe"

const (
	// PageUnit is the granularity in which memory is requested from the OS.
	// Slabs are carved from PageUnit-sized mappings and large objects are
	// rounded up to a multiple of it.
	PageUnit = 4096

	// PageUnitMask is PageUnit - 1, used for alignment arithmetic.
	PageUnitMask = PageUnit - 1

	// HeaderSize is the size of the chunk header: one machine word holding
	// the chunk's true size, stored immediately before the caller's pointer.
	HeaderSize = int(unsafe.Sizeof(uintptr(0)))

	// WordAlignment is the alignment of every chunk boundary in the
	// coalescing free list.
	WordAlignment = HeaderSize

	// WordAlignmentMask is WordAlignment - 1.
	WordAlignmentMask = WordAlignment - 1

	// MinNodeSize is the smallest chunk that can carry a free-list node:
	// the size word plus the forward link.
	MinNodeSize = 2 * HeaderSize

	// MinClassShift is log2 of the smallest size class.
	MinClassShift = 6

	// MinClassSize is the smallest size class in bytes (header included).
	MinClassSize = 1 << MinClassShift

	// MaxClassShift is log2 of the largest size class.
	MaxClassShift = 12

	// MaxClassSize is the largest size class. It equals PageUnit, so one
	// slab of the largest class holds exactly one chunk.
	MaxClassSize = 1 << MaxClassShift

	// NumClasses is the number of size classes (64B through 4KB).
	NumClasses = MaxClassShift - MinClassShift + 1

	// LargeThreshold is the smallest request, in user bytes, whose true size
	// exceeds MaxClassSize. Requests at or above it are served by a
	// dedicated mapping.
	LargeThreshold = MaxClassSize - HeaderSize + 1

	// LiveTag marks a live chunk header in hardened mode. Chunk sizes are
	// always word multiples, so bit 0 is never part of a size.
	LiveTag uintptr = 1
)
