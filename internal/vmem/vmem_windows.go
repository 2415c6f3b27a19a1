//go:build windows

package vmem

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

type osMapper struct{}

// Map reserves and commits size bytes of read-write memory.
func (osMapper) Map(size int) ([]byte, error) {
	if err := checkLength(size); err != nil {
		return nil, err
	}
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, errors.Wrapf(ErrExhausted, "VirtualAlloc %d bytes: %v", size, err)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

// Unmap releases the whole reservation that starts at b.
func (osMapper) Unmap(b []byte) error {
	if err := checkLength(len(b)); err != nil {
		return err
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return errors.Wrapf(ErrNotMapped, "VirtualFree %d bytes: %v", len(b), err)
	}
	return nil
}
