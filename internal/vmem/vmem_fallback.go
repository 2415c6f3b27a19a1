//go:build !(linux || darwin || freebsd || netbsd || openbsd || windows)

package vmem

// osMapper falls back to pinned Go memory where no mapping syscall is wired.
type osMapper struct{}

var fallback = NewHeap()

func (osMapper) Map(size int) ([]byte, error) {
	return fallback.Map(size)
}

func (osMapper) Unmap(b []byte) error {
	return fallback.Unmap(b)
}
