//go:build linux || darwin

package alloc

import (
	"bytes"
	"context"
	"math/rand/v2"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/hmalloc/internal/format"
	"github.com/joshuapare/hmalloc/internal/vmem"
)

// Test_ArenaCoalesceReusesMergedSpace frees two neighbours and checks that a
// request larger than either is served from the merged node.
func Test_ArenaCoalesceReusesMergedSpace(t *testing.T) {
	a := NewArena(Config{Validate: true})

	pa, err := a.Alloc(1500)
	require.NoError(t, err)
	pb, err := a.Alloc(1500)
	require.NoError(t, err)
	require.Equal(t, uintptr(pa)+1512, uintptr(pb), "first fit carves neighbours in address order")

	require.NoError(t, a.Free(pa))
	require.NoError(t, a.Free(pb))

	s := a.Stats()
	require.Equal(t, int64(1), s.PagesMapped)
	require.Equal(t, int64(1), s.FreeLength)
	require.Equal(t, uintptr(format.PageUnit), a.FreeBytes())

	pc, err := a.Alloc(2500)
	require.NoError(t, err)
	require.Equal(t, pa, pc)
	require.Equal(t, int64(1), a.Stats().PagesMapped)
	require.NoError(t, a.Free(pc))
}

func Test_ArenaSplitKeepsSmallResidual(t *testing.T) {
	a := NewArena(Config{})

	// 4072 user bytes -> 4080 true size, leaving exactly MinNodeSize.
	p, err := a.Alloc(4072)
	require.NoError(t, err)
	require.Equal(t, format.PageUnit-format.HeaderSize, UsableSize(p))
	require.Equal(t, int64(0), a.Stats().FreeLength)
	require.NoError(t, a.Free(p))

	// 4064 user bytes -> 4072, residual 24 is split off.
	q, err := a.Alloc(4064)
	require.NoError(t, err)
	require.Equal(t, p, q)
	require.Equal(t, 4064, UsableSize(q))
	require.Equal(t, int64(1), a.Stats().FreeLength)
	require.Equal(t, uintptr(24), a.FreeBytes())
	require.NoError(t, a.Free(q))
}

func Test_ArenaAbsorbedResidualPastLargestClass(t *testing.T) {
	a := NewArena(Config{GrowPages: 2, Validate: true})

	x, err := a.Alloc(4072) // 4080, leaves a 4112-byte node
	require.NoError(t, err)

	// 4096 requested, the 16-byte residual is absorbed.
	y, err := a.Alloc(format.LargeThreshold - 1)
	require.NoError(t, err)
	require.Equal(t, 4112-format.HeaderSize, UsableSize(y))
	require.Equal(t, 0, int(a.FreeBytes()))

	require.NoError(t, a.Free(y))
	require.Equal(t, uintptr(4112), a.FreeBytes())
	require.NoError(t, a.Free(x))
	require.Equal(t, uintptr(2*format.PageUnit), a.FreeBytes())
	require.Equal(t, int64(1), a.Stats().FreeLength)
	require.Equal(t, int64(0), a.Stats().PagesUnmapped)
}

func Test_ArenaMinimumNode(t *testing.T) {
	a := NewArena(Config{})

	p, err := a.Alloc(0)
	require.NoError(t, err)
	require.Equal(t, format.MinNodeSize-format.HeaderSize, UsableSize(p))

	q, err := a.Alloc(3)
	require.NoError(t, err)
	require.Equal(t, uintptr(p)+uintptr(format.MinNodeSize), uintptr(q))

	require.NoError(t, a.Free(p))
	require.NoError(t, a.Free(q))
	require.NoError(t, a.Validate())
}

func Test_ArenaOrderingUnderShuffledFrees(t *testing.T) {
	a := NewArena(Config{Validate: true, GrowPages: 4})
	rng := rand.New(rand.NewPCG(3, 4))

	var ptrs []unsafe.Pointer
	for range 300 {
		p, err := a.Alloc(rng.IntN(format.LargeThreshold))
		require.NoError(t, err)
		ptrs = append(ptrs, p)
	}
	requireDisjoint(t, ptrs)

	rng.Shuffle(len(ptrs), func(i, j int) { ptrs[i], ptrs[j] = ptrs[j], ptrs[i] })
	for _, p := range ptrs {
		require.NoError(t, a.Free(p))
		require.NoError(t, a.Validate())
	}

	s := a.Stats()
	require.Equal(t, uintptr(s.PagesMapped)*format.PageUnit, a.FreeBytes())
	require.Equal(t, s.Allocs, s.Frees)
	require.LessOrEqual(t, s.FreeLength, s.PagesMapped/4)
}

func Test_ArenaDoubleFreeDetected(t *testing.T) {
	a := NewArena(Config{})

	p, err := a.Alloc(100)
	require.NoError(t, err)
	keep, err := a.Alloc(100)
	require.NoError(t, err)

	require.NoError(t, a.Free(p))
	require.ErrorIs(t, a.Free(p), ErrOrderViolation)
	require.NoError(t, a.Free(keep))
}

func Test_ArenaHardenedDoubleFree(t *testing.T) {
	a := NewArena(Config{Hardened: true})

	p, err := a.Alloc(100)
	require.NoError(t, err)
	require.NoError(t, a.Free(p))
	require.ErrorIs(t, a.Free(p), ErrDoubleFree)
}

func Test_ArenaLarge(t *testing.T) {
	a := NewArena(Config{})

	p, err := a.Alloc(format.LargeThreshold)
	require.NoError(t, err)
	s := a.Stats()
	require.Equal(t, int64(2), s.PagesMapped)
	require.Zero(t, s.FreeLength)

	require.NoError(t, a.Free(p))
	require.Equal(t, int64(2), a.Stats().PagesUnmapped)
}

func Test_ArenaExhaustion(t *testing.T) {
	a := NewArena(Config{Mapper: vmem.Limit(vmem.OS(), 1)})

	p, err := a.Alloc(4000)
	require.NoError(t, err)
	_, err = a.Alloc(200)
	require.ErrorIs(t, err, ErrMapFailed)
	require.ErrorIs(t, err, vmem.ErrExhausted)
	require.NoError(t, a.Free(p))
}

func Test_ArenaDumpFreeList(t *testing.T) {
	a := NewArena(Config{})

	p, err := a.Alloc(64)
	require.NoError(t, err)

	var buf bytes.Buffer
	a.DumpFreeList(&buf)
	require.Contains(t, buf.String(), "free list: 1 nodes, 4024 bytes")
	require.Contains(t, buf.String(), "size=4024")
	require.NoError(t, a.Free(p))
}

func Test_ArenaConcurrent(t *testing.T) {
	a := NewArena(Config{Hardened: true, GrowPages: 8})
	g, _ := errgroup.WithContext(context.Background())

	for w := range 6 {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(w), 11))
			var live []unsafe.Pointer
			for range 2000 {
				if len(live) > 0 && rng.IntN(3) == 0 {
					j := rng.IntN(len(live))
					if err := a.Free(live[j]); err != nil {
						return err
					}
					live = append(live[:j], live[j+1:]...)
					continue
				}
				p, err := a.Alloc(rng.IntN(3000))
				if err != nil {
					return err
				}
				live = append(live, p)
			}
			for _, p := range live {
				if err := a.Free(p); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.NoError(t, a.Validate())

	s := a.Stats()
	require.Equal(t, s.Allocs, s.Frees)
	require.Equal(t, uintptr(s.PagesMapped)*format.PageUnit, a.FreeBytes())
}
