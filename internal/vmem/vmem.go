// Package vmem wraps the operating system's virtual-memory mapping interface.
//
// A Mapper hands out anonymous, writable, zero-filled regions whose length is a
// multiple of format.PageUnit and takes them back by exact address and length.
// OS returns the platform implementation: mmap/munmap on unix systems,
// VirtualAlloc/VirtualFree on windows, and pinned Go memory elsewhere.
package vmem

import (
	"github.com/pkg/errors"

	"github.com/joshuapare/hmalloc/internal/format"
)

var (
	// ErrExhausted indicates the mapper refused to supply more memory.
	ErrExhausted = errors.New("vmem: address space exhausted")

	// ErrBadLength indicates a mapping length that is not a positive multiple of the page unit.
	ErrBadLength = errors.New("vmem: length must be a positive multiple of the page unit")

	// ErrNotMapped indicates an unmap of a region this mapper never handed out.
	ErrNotMapped = errors.New("vmem: region not mapped")
)

// Mapper maps and unmaps page-unit regions.
type Mapper interface {
	// Map returns a fresh zero-filled region of exactly size bytes.
	Map(size int) ([]byte, error)

	// Unmap releases a region. b must start at the address returned by Map
	// and have the same length.
	Unmap(b []byte) error
}

// OS returns the platform mapper.
func OS() Mapper {
	return osMapper{}
}

func checkLength(size int) error {
	if size <= 0 || size&format.PageUnitMask != 0 {
		return errors.Wrapf(ErrBadLength, "size=%d", size)
	}
	return nil
}
