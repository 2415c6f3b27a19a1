package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hmalloc/internal/format"
)

func Test_ClassIndex(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{0, 0},
		{1, 0},
		{9, 0},
		{64, 0},
		{65, 1},
		{128, 1},
		{129, 2},
		{256, 2},
		{512, 3},
		{513, 4},
		{1024, 4},
		{2048, 5},
		{2049, 6},
		{4096, 6},
		{4097, format.NumClasses},
		{1 << 20, format.NumClasses},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ClassIndex(tt.size), "size=%d", tt.size)
	}
}

func Test_ClassSize(t *testing.T) {
	require.Equal(t, 64, ClassSize(0))
	require.Equal(t, 4096, ClassSize(format.NumClasses-1))
	for i := range format.NumClasses {
		require.Equal(t, i, ClassIndex(ClassSize(i)))
	}
}

// Test_ClassIndexMonotonic checks that larger requests never map to smaller
// classes and that the chosen class always holds the request.
func Test_ClassIndexMonotonic(t *testing.T) {
	prev := 0
	for size := 1; size <= format.MaxClassSize; size++ {
		c := ClassIndex(size)
		require.GreaterOrEqual(t, c, prev, "size=%d", size)
		require.GreaterOrEqual(t, ClassSize(c), size, "size=%d", size)
		if c > 0 {
			require.Less(t, ClassSize(c-1), size, "size=%d not in smallest class", size)
		}
		prev = c
	}
}

func Test_Classes(t *testing.T) {
	rows := Classes(1)
	require.Len(t, rows, format.NumClasses)

	require.Equal(t, 0, rows[0].MinRequest)
	require.Equal(t, 64-format.HeaderSize, rows[0].MaxRequest)
	require.Equal(t, 64, rows[0].ChunksPerSlab)
	require.Equal(t, 1, rows[format.NumClasses-1].ChunksPerSlab)
	require.Equal(t, format.LargeThreshold-1, rows[format.NumClasses-1].MaxRequest)

	for i := 1; i < len(rows); i++ {
		require.Equal(t, rows[i-1].MaxRequest+1, rows[i].MinRequest)
	}

	wide := Classes(4)
	require.Equal(t, 4, wide[format.NumClasses-1].ChunksPerSlab)
}
