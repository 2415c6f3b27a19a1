package alloc

import (
	"unsafe"

	"github.com/joshuapare/hmalloc/internal/format"
)

// Architecture names one of the two free-storage designs.
type Architecture string

const (
	// Segregated uses a shared Heap plus goroutine-owned Caches.
	Segregated Architecture = "segregated"

	// Coalescing uses one lock-guarded, address-ordered Arena.
	Coalescing Architecture = "coalescing"
)

// ParseArchitecture maps a name to an Architecture. ok is false for unknown names.
func ParseArchitecture(s string) (Architecture, bool) {
	switch Architecture(s) {
	case Segregated, Coalescing:
		return Architecture(s), true
	}
	return "", false
}

// Allocator defines the allocate/release/resize triad.
//
// Implementations:
//   - *Cache: segregated size-class cache owned by one goroutine
//   - *Arena: coalescing first-fit free list guarded by one mutex
type Allocator interface {
	// Alloc returns a pointer to at least n usable bytes.
	Alloc(n int) (unsafe.Pointer, error)

	// Free releases a pointer returned by Alloc or Realloc. Free(nil) is a no-op.
	Free(p unsafe.Pointer) error

	// Realloc resizes p to hold n bytes, see the package documentation.
	Realloc(p unsafe.Pointer, n int) (unsafe.Pointer, error)
}

// UsableSize returns the number of bytes the caller may use at p.
// It may exceed the size originally requested.
func UsableSize(p unsafe.Pointer) int {
	if p == nil {
		return 0
	}
	return int(format.ReadHeader(p)&^format.LiveTag) - format.HeaderSize
}

// Bytes views n bytes at p as a byte slice. The slice aliases off-heap memory
// and must not be used after p is released.
func Bytes(p unsafe.Pointer, n int) []byte {
	return format.Bytes(p, n)
}
