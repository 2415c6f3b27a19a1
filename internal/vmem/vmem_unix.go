//go:build linux || darwin || freebsd || netbsd || openbsd

package vmem

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type osMapper struct{}

// Map maps size bytes of private anonymous memory.
func (osMapper) Map(size int) ([]byte, error) {
	if err := checkLength(size); err != nil {
		return nil, err
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		if errors.Is(err, unix.ENOMEM) {
			return nil, errors.Wrapf(ErrExhausted, "mmap %d bytes: %v", size, err)
		}
		return nil, errors.Wrapf(err, "vmem: mmap %d bytes", size)
	}
	return b, nil
}

// Unmap releases a region previously returned by Map.
func (osMapper) Unmap(b []byte) error {
	if err := checkLength(len(b)); err != nil {
		return err
	}
	if err := unix.Munmap(b); err != nil {
		if errors.Is(err, unix.EINVAL) {
			return errors.Wrapf(ErrNotMapped, "munmap %d bytes: %v", len(b), err)
		}
		return errors.Wrapf(err, "vmem: munmap %d bytes", len(b))
	}
	return nil
}
