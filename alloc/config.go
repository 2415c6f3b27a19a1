package alloc

import (
	"os"

	"github.com/joshuapare/hmalloc/internal/vmem"
)

// logAlloc enables debug logs on slow paths. Set HMALLOC_LOG_ALLOC to turn it on.
var logAlloc = os.Getenv("HMALLOC_LOG_ALLOC") != ""

// Config tunes an engine instance.
type Config struct {
	// SlabPages is the number of page units mapped per slab refill. Wider
	// slabs trade memory for fewer mapping calls.
	SlabPages int

	// GrowPages is the number of page units the coalescing arena maps when
	// no free node fits.
	GrowPages int

	// Hardened tags live headers so that double release is reported as
	// ErrDoubleFree instead of corrupting free storage.
	Hardened bool

	// Validate runs FreeList.Validate after every coalescing release.
	Validate bool

	// Mapper supplies page units. Nil means vmem.OS().
	Mapper vmem.Mapper
}

// DefaultConfig is used when no configuration is given.
var DefaultConfig = Config{
	SlabPages: 1,
	GrowPages: 1,
}

func (c Config) withDefaults() Config {
	if c.SlabPages <= 0 {
		c.SlabPages = DefaultConfig.SlabPages
	}
	if c.GrowPages <= 0 {
		c.GrowPages = DefaultConfig.GrowPages
	}
	if c.Mapper == nil {
		c.Mapper = vmem.OS()
	}
	return c
}
