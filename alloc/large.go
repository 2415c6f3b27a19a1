package alloc

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/joshuapare/hmalloc/internal/format"
	"github.com/joshuapare/hmalloc/internal/logger"
)

// isLarge reports whether a chunk of trueSize bytes bypasses the size classes.
func isLarge(trueSize uintptr) bool {
	return trueSize > format.MaxClassSize
}

// largeChunkMin is the smallest size a large header can record: a request
// just past MaxClassSize still maps two page units.
const largeChunkMin = 2 * format.PageUnit

// isLargeChunk reports whether a recorded chunk size denotes a dedicated
// mapping. Arena chunks may exceed MaxClassSize by an unsplit residual but
// stay below largeChunkMin.
func isLargeChunk(size uintptr) bool {
	return size >= largeChunkMin
}

// allocLarge maps a dedicated region for a request of trueSize bytes. The
// header records the full mapped size so the release path knows how many
// page units to return.
func allocLarge(src *SlabSource, policy chunkPolicy, trueSize int) (unsafe.Pointer, error) {
	pages := format.PagesFor(trueSize)
	base, err := src.MapPages(pages)
	if err != nil {
		return nil, err
	}
	p := format.PayloadOf(base)
	policy.stamp(p, uintptr(pages*format.PageUnit))

	if logAlloc {
		logger.Debug("large mapped", "size", trueSize, "pages", pages)
	}
	return p, nil
}

// freeLarge unmaps the region of a large chunk whose claimed size is size.
func freeLarge(src *SlabSource, p unsafe.Pointer, size uintptr) error {
	if size&format.PageUnitMask != 0 {
		return errors.Wrapf(ErrBadHeader, "large chunk size %d is not page aligned", size)
	}
	pages := int(size) / format.PageUnit
	if logAlloc {
		logger.Debug("large unmapped", "pages", pages)
	}
	return src.UnmapPages(format.HeaderOf(p), pages)
}
