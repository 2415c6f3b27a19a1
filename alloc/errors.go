package alloc

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMapFailed indicates the OS could not supply the requested pages.
	ErrMapFailed = errors.New("alloc: mapping failed")

	// ErrUnmapFailed indicates the OS rejected the release of a mapped region.
	// This always means header bookkeeping is wrong.
	ErrUnmapFailed = errors.New("alloc: unmapping failed")

	// ErrOrderViolation indicates the coalescing free list lost its address ordering
	// or holds overlapping or unmerged neighbours.
	ErrOrderViolation = errors.New("alloc: free list ordering violated")

	// ErrDoubleFree indicates a release of a chunk whose header is not tagged live (hardened mode).
	ErrDoubleFree = errors.New("alloc: chunk is not live")

	// ErrBadHeader indicates a header that cannot describe a chunk of this allocator.
	ErrBadHeader = errors.New("alloc: bad chunk header")

	// ErrNegativeSize indicates a negative or overflowing request size.
	ErrNegativeSize = errors.New("alloc: size must be non-negative")

	// ErrClosed indicates use of a Cache after Close.
	ErrClosed = errors.New("alloc: cache closed")
)

const (
	opMap   = "map"
	opUnmap = "unmap"
)

// MapError reports a failed OS mapping or unmapping.
// It matches ErrMapFailed or ErrUnmapFailed under errors.Is, and unwraps to
// the mapper's error.
type MapError struct {
	Op    string // "map" or "unmap"
	Pages int
	Err   error
}

func (e *MapError) Error() string {
	return fmt.Sprintf("alloc: %s %d pages: %v", e.Op, e.Pages, e.Err)
}

func (e *MapError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this operation.
func (e *MapError) Is(target error) bool {
	switch target {
	case ErrMapFailed:
		return e.Op == opMap
	case ErrUnmapFailed:
		return e.Op == opUnmap
	}
	return false
}
