package vmem

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/joshuapare/hmalloc/internal/format"
)

// HeapMapper serves regions out of Go-allocated byte slices. Each region is
// page-aligned and pinned in a table until it is unmapped, so the garbage
// collector never reclaims memory the allocator still hands out.
type HeapMapper struct {
	mu   sync.Mutex
	live map[uintptr][]byte // aligned start -> backing slice
}

// NewHeap returns an empty HeapMapper.
func NewHeap() *HeapMapper {
	return &HeapMapper{live: make(map[uintptr][]byte)}
}

// Map returns size zeroed bytes aligned to the page unit.
func (h *HeapMapper) Map(size int) ([]byte, error) {
	if err := checkLength(size); err != nil {
		return nil, err
	}
	total, ok := format.AddOverflowSafe(size, format.PageUnit)
	if !ok {
		return nil, errors.Wrapf(ErrExhausted, "size=%d", size)
	}
	backing := make([]byte, total)
	misalign := int(uintptr(unsafe.Pointer(&backing[0])) & format.PageUnitMask)
	skip := format.AlignPage(misalign) - misalign
	region := backing[skip : skip+size : skip+size]
	addr := uintptr(unsafe.Pointer(&region[0]))

	h.mu.Lock()
	h.live[addr] = backing
	h.mu.Unlock()
	return region, nil
}

// Unmap drops the pin on a region returned by Map.
func (h *HeapMapper) Unmap(b []byte) error {
	if err := checkLength(len(b)); err != nil {
		return err
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(b)))

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.live[addr]; !ok {
		return errors.Wrapf(ErrNotMapped, "addr=%#x size=%d", addr, len(b))
	}
	delete(h.live, addr)
	return nil
}

// Regions returns the number of live regions.
func (h *HeapMapper) Regions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}
