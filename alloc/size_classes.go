package alloc

import (
	"math/bits"

	"github.com/joshuapare/hmalloc/internal/format"
)

// ClassIndex returns the size class for a chunk of trueSize bytes.
//
// The class is the smallest i with ClassSize(i) >= trueSize, i.e.
// max(0, ceil(log2(trueSize)) - 6). Sizes above the largest class return
// format.NumClasses, which callers treat as "large".
//
// Example:
//
//	ClassIndex(1)    = 0  (64)
//	ClassIndex(64)   = 0  (64)
//	ClassIndex(65)   = 1  (128)
//	ClassIndex(4096) = 6  (4096)
//	ClassIndex(4097) = 7  (large)
func ClassIndex(trueSize int) int {
	if trueSize <= format.MinClassSize {
		return 0
	}
	if trueSize > format.MaxClassSize {
		return format.NumClasses
	}
	return bits.Len(uint(trueSize-1)) - format.MinClassShift
}

// ClassSize returns the chunk size of class i (header included).
func ClassSize(i int) int {
	return 1 << (format.MinClassShift + i)
}

// ChunksPerSlab returns how many class-i chunks one slab of slabPages page
// units holds.
func ChunksPerSlab(i, slabPages int) int {
	return slabPages * format.PageUnit / ClassSize(i)
}

// ClassInfo describes one row of the size-class table.
type ClassInfo struct {
	Index         int `json:"index"`
	ChunkSize     int `json:"chunk_size"`
	MinRequest    int `json:"min_request"` // smallest user request served by this class
	MaxRequest    int `json:"max_request"` // largest user request served by this class
	ChunksPerSlab int `json:"chunks_per_slab"`
}

// Classes returns the size-class table for the given slab width.
func Classes(slabPages int) []ClassInfo {
	if slabPages <= 0 {
		slabPages = DefaultConfig.SlabPages
	}
	out := make([]ClassInfo, format.NumClasses)
	lo := 0
	for i := range out {
		hi := ClassSize(i) - format.HeaderSize
		out[i] = ClassInfo{
			Index:         i,
			ChunkSize:     ClassSize(i),
			MinRequest:    lo,
			MaxRequest:    hi,
			ChunksPerSlab: ChunksPerSlab(i, slabPages),
		}
		lo = hi + 1
	}
	return out
}
