package alloc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_StatsFprint(t *testing.T) {
	s := Stats{
		PagesMapped:   1234567,
		PagesUnmapped: 12,
		Allocs:        3000,
		Frees:         2999,
		FreeLength:    7,
	}

	var buf bytes.Buffer
	s.Fprint(&buf)
	out := buf.String()

	require.Contains(t, out, "== hmalloc stats ==")
	require.Contains(t, out, "Mapped:   1,234,567\n")
	require.Contains(t, out, "Unmapped: 12\n")
	require.Contains(t, out, "Allocs:   3,000\n")
	require.Contains(t, out, "Frees:    2,999\n")
	require.Contains(t, out, "Freelen:  7\n")
}

func Test_StatsDerived(t *testing.T) {
	prev := Stats{PagesMapped: 4, Allocs: 10, Frees: 2, FreeLength: 9}
	cur := Stats{PagesMapped: 7, PagesUnmapped: 2, Allocs: 15, Frees: 6, FreeLength: 3}

	require.Equal(t, int64(9), cur.Live())
	require.Equal(t, int64(5), cur.PagesHeld())

	d := cur.Sub(prev)
	require.Equal(t, Stats{PagesMapped: 3, PagesUnmapped: 2, Allocs: 5, Frees: 4, FreeLength: 3}, d)
}

func Test_ParseArchitecture(t *testing.T) {
	a, ok := ParseArchitecture("coalescing")
	require.True(t, ok)
	require.Equal(t, Coalescing, a)

	_, ok = ParseArchitecture("buddy")
	require.False(t, ok)
}
