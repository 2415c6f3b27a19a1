package alloc

import (
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/joshuapare/hmalloc/internal/format"
	"github.com/joshuapare/hmalloc/internal/logger"
	"github.com/joshuapare/hmalloc/internal/vmem"
)

// SlabSource obtains page units from a Mapper and carves them into chunks.
// It is the only component that talks to the OS, so it also owns the page
// counters reported in Stats. SlabSource is safe for concurrent use.
type SlabSource struct {
	mapper    vmem.Mapper
	slabPages int

	mapped   atomic.Int64
	unmapped atomic.Int64
}

// NewSlabSource creates a source that maps slabPages page units per slab.
func NewSlabSource(m vmem.Mapper, slabPages int) *SlabSource {
	if m == nil {
		m = vmem.OS()
	}
	if slabPages <= 0 {
		slabPages = DefaultConfig.SlabPages
	}
	return &SlabSource{mapper: m, slabPages: slabPages}
}

// SlabPages returns the number of page units mapped per slab.
func (s *SlabSource) SlabPages() int { return s.slabPages }

// PagesMapped returns the number of page units mapped so far.
func (s *SlabSource) PagesMapped() int64 { return s.mapped.Load() }

// PagesUnmapped returns the number of page units returned to the OS so far.
func (s *SlabSource) PagesUnmapped() int64 { return s.unmapped.Load() }

// MapPages maps pages page units and returns the start of the region.
func (s *SlabSource) MapPages(pages int) (unsafe.Pointer, error) {
	size, ok := format.MappingSize(pages)
	if !ok || pages <= 0 {
		return nil, errors.WithStack(&MapError{Op: opMap, Pages: pages, Err: vmem.ErrBadLength})
	}
	b, err := s.mapper.Map(size)
	if err != nil {
		return nil, errors.WithStack(&MapError{Op: opMap, Pages: pages, Err: err})
	}
	s.mapped.Add(int64(pages))
	return unsafe.Pointer(unsafe.SliceData(b)), nil
}

// UnmapPages returns a region obtained from MapPages. pages must match the
// count it was mapped with.
func (s *SlabSource) UnmapPages(base unsafe.Pointer, pages int) error {
	size, ok := format.MappingSize(pages)
	if !ok || pages <= 0 || base == nil {
		return errors.WithStack(&MapError{Op: opUnmap, Pages: pages, Err: vmem.ErrBadLength})
	}
	if err := s.mapper.Unmap(unsafe.Slice((*byte)(base), size)); err != nil {
		return errors.WithStack(&MapError{Op: opUnmap, Pages: pages, Err: err})
	}
	s.unmapped.Add(int64(pages))
	return nil
}

// Acquire maps one slab and threads it into a list of class-sized free
// chunks, lowest address first. It returns the head and the chunk count.
func (s *SlabSource) Acquire(class int) (*node, int, error) {
	base, err := s.MapPages(s.slabPages)
	if err != nil {
		return nil, 0, err
	}
	size := ClassSize(class)
	count := ChunksPerSlab(class, s.slabPages)
	head := carve(base, size, count)

	if logAlloc {
		logger.Debug("slab acquired", "class", class, "chunk_size", size, "chunks", count, "pages", s.slabPages)
	}
	return head, count, nil
}

// carve splits count*size bytes at base into linked chunks of size bytes.
func carve(base unsafe.Pointer, size, count int) *node {
	var head *node
	for i := count - 1; i >= 0; i-- {
		n := nodeAt(unsafe.Add(base, i*size))
		n.size = uintptr(size)
		n.next = head
		head = n
	}
	return head
}
