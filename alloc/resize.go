package alloc

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/joshuapare/hmalloc/internal/format"
)

// resize implements Realloc on top of an Allocator's Alloc and Free.
// The fit test uses the chunk's recorded true size, so a shrink or a grow
// that still fits keeps the pointer and the header untouched.
func resize(a Allocator, policy chunkPolicy, p unsafe.Pointer, n int) (unsafe.Pointer, error) {
	if p == nil {
		return a.Alloc(n)
	}
	if n == 0 {
		return nil, a.Free(p)
	}
	want, ok := format.TrueSize(n)
	if !ok {
		return nil, errors.Wrapf(ErrNegativeSize, "n=%d", n)
	}
	have, err := policy.size(p)
	if err != nil {
		return nil, err
	}
	if uintptr(want) <= have {
		return p, nil
	}

	q, err := a.Alloc(n)
	if err != nil {
		return nil, err
	}
	copy(format.Bytes(q, n), format.Bytes(p, int(have)-format.HeaderSize))
	if err := a.Free(p); err != nil {
		return nil, err
	}
	return q, nil
}
