package format

import "math"

// AlignWord returns n aligned up to the next word boundary.
//
// Example (64-bit):
//
//	AlignWord(1)  = 8
//	AlignWord(8)  = 8
//	AlignWord(9)  = 16
func AlignWord(n int) int {
	return (n + WordAlignmentMask) &^ WordAlignmentMask
}

// AlignPage returns n aligned up to the next PageUnit boundary.
//
// Example:
//
//	AlignPage(1)    = 4096
//	AlignPage(4096) = 4096
//	AlignPage(4097) = 8192
func AlignPage(n int) int {
	return (n + PageUnitMask) &^ PageUnitMask
}

// DivUp returns ceil(x / y) for positive y.
func DivUp(x, y int) int {
	q := x / y
	if q*y == x {
		return q
	}
	return q + 1
}

// PagesFor returns the number of page units needed to hold n bytes.
func PagesFor(n int) int {
	return DivUp(n, PageUnit)
}

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative ints, returning ok = false on overflow.
// Used for page count * PageUnit when sizing mappings.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// TrueSize returns the number of bytes a request of n user bytes occupies once
// the chunk header is added. ok is false if n is negative or the sum overflows.
func TrueSize(n int) (int, bool) {
	if n < 0 {
		return 0, false
	}
	return AddOverflowSafe(n, HeaderSize)
}

// MappingSize returns pages*PageUnit, or ok = false when it would overflow.
func MappingSize(pages int) (int, bool) {
	return MulOverflowSafe(pages, PageUnit)
}
