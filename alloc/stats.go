package alloc

import (
	"io"
	"os"

	"go.uber.org/atomic"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Stats is a snapshot of allocator activity.
type Stats struct {
	PagesMapped   int64 `json:"pages_mapped"`
	PagesUnmapped int64 `json:"pages_unmapped"`
	Allocs        int64 `json:"allocs"`
	Frees         int64 `json:"frees"`
	FreeLength    int64 `json:"free_length"` // chunks currently held in free storage
}

// Live returns the number of allocations not yet released.
func (s Stats) Live() int64 { return s.Allocs - s.Frees }

// PagesHeld returns the number of page units currently mapped.
func (s Stats) PagesHeld() int64 { return s.PagesMapped - s.PagesUnmapped }

// Sub returns the counter deltas s - prev. FreeLength is taken from s.
func (s Stats) Sub(prev Stats) Stats {
	return Stats{
		PagesMapped:   s.PagesMapped - prev.PagesMapped,
		PagesUnmapped: s.PagesUnmapped - prev.PagesUnmapped,
		Allocs:        s.Allocs - prev.Allocs,
		Frees:         s.Frees - prev.Frees,
		FreeLength:    s.FreeLength,
	}
}

// Fprint writes the five counters to w, one per line.
func (s Stats) Fprint(w io.Writer) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "== hmalloc stats ==\n")
	p.Fprintf(w, "Mapped:   %d\n", s.PagesMapped)
	p.Fprintf(w, "Unmapped: %d\n", s.PagesUnmapped)
	p.Fprintf(w, "Allocs:   %d\n", s.Allocs)
	p.Fprintf(w, "Frees:    %d\n", s.Frees)
	p.Fprintf(w, "Freelen:  %d\n", s.FreeLength)
}

// PrintStats prints s to stderr.
func PrintStats(s Stats) {
	s.Fprint(os.Stderr)
}

// counters tracks allocation activity for one owner. Only the owner writes;
// Stats may read from any goroutine.
type counters struct {
	allocs  atomic.Int64
	frees   atomic.Int64
	freeLen atomic.Int64
}
