package hmalloc

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/joshuapare/hmalloc/alloc"
	"github.com/joshuapare/hmalloc/internal/logger"
)

// std is the process-wide allocator, configured from the environment on first use.
var std = sync.OnceValue(func() *Allocator {
	logger.Init(LogOptionsFromEnv())

	cfg, err := ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hmalloc: %v; using defaults\n", err)
		cfg = DefaultConfig()
	}
	a, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return a
})

// Default returns the process-wide allocator.
func Default() *Allocator { return std() }

// Malloc allocates from the process-wide allocator.
func Malloc(n int) unsafe.Pointer { return std().Malloc(n) }

// Free releases p to the process-wide allocator.
func Free(p unsafe.Pointer) { std().Free(p) }

// Realloc resizes p through the process-wide allocator.
func Realloc(p unsafe.Pointer, n int) unsafe.Pointer { return std().Realloc(p, n) }

// ReadStats returns the process-wide allocator's counters.
func ReadStats() Stats { return std().Stats() }

// PrintStats writes the process-wide allocator's counters to stderr.
func PrintStats() { std().PrintStats() }

// Bytes views n bytes at p as a byte slice. The slice aliases off-heap
// memory and must not outlive p.
func Bytes(p unsafe.Pointer, n int) []byte { return alloc.Bytes(p, n) }

// UsableSize returns the number of bytes the caller may use at p.
func UsableSize(p unsafe.Pointer) int { return alloc.UsableSize(p) }
