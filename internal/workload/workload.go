// Package workload drives an allocator with concurrent randomized
// allocate/release/resize traffic and verifies that no chunk is corrupted
// while it is live.
package workload

import (
	"context"
	"math/rand/v2"
	"time"
	"unsafe"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/hmalloc/alloc"
	"github.com/joshuapare/hmalloc/internal/format"
	"github.com/joshuapare/hmalloc/internal/logger"
)

// ErrCorruption indicates a live chunk whose contents changed underneath its owner.
var ErrCorruption = errors.New("workload: live chunk corrupted")

// Options configures a run.
type Options struct {
	Architecture alloc.Architecture
	Engine       alloc.Config

	Workers int // concurrent goroutines
	Ops     int // operations per worker
	MaxSize int // largest small request in bytes
	MaxLive int // live chunks a worker holds before it starts releasing

	// LargeEvery makes roughly one allocation in LargeEvery a large
	// object. Zero disables large objects.
	LargeEvery int

	Seed uint64
}

// DefaultOptions returns a moderate mixed workload.
func DefaultOptions() Options {
	return Options{
		Architecture: alloc.Segregated,
		Engine:       alloc.DefaultConfig,
		Workers:      4,
		Ops:          100_000,
		MaxSize:      2048,
		MaxLive:      512,
		LargeEvery:   200,
		Seed:         1,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Architecture == "" {
		o.Architecture = def.Architecture
	}
	if o.Workers <= 0 {
		o.Workers = def.Workers
	}
	if o.Ops <= 0 {
		o.Ops = def.Ops
	}
	if o.MaxSize <= 0 {
		o.MaxSize = def.MaxSize
	}
	if o.MaxLive <= 0 {
		o.MaxLive = def.MaxLive
	}
	return o
}

// Report summarizes a finished run.
type Report struct {
	RunID        string             `json:"run_id"`
	Architecture alloc.Architecture `json:"architecture"`
	Workers      int                `json:"workers"`
	Ops          int64              `json:"ops"`
	Elapsed      time.Duration      `json:"elapsed_ns"`
	OpsPerSec    float64            `json:"ops_per_sec"`
	Corrupted    int64              `json:"corrupted"`
	Stats        alloc.Stats        `json:"stats"`
}

// Job is a run in progress.
type Job struct {
	ID   uuid.UUID
	opts Options

	done    atomic.Int64
	corrupt atomic.Int64
	stats   func() alloc.Stats
	start   time.Time

	finished chan struct{}
	report   Report
	err      error
}

// Start launches a run in the background.
func Start(ctx context.Context, opts Options) (*Job, error) {
	opts = opts.withDefaults()
	j := &Job{
		ID:       uuid.New(),
		opts:     opts,
		start:    time.Now(),
		finished: make(chan struct{}),
	}

	g, gctx := errgroup.WithContext(ctx)
	switch opts.Architecture {
	case alloc.Segregated:
		h := alloc.NewHeap(opts.Engine)
		j.stats = h.Stats
		for w := range opts.Workers {
			g.Go(func() error {
				c := h.NewCache()
				defer c.Close()
				return j.work(gctx, w, c)
			})
		}
	case alloc.Coalescing:
		a := alloc.NewArena(opts.Engine)
		j.stats = a.Stats
		for w := range opts.Workers {
			g.Go(func() error { return j.work(gctx, w, a) })
		}
	default:
		return nil, errors.Errorf("workload: unknown architecture %q", opts.Architecture)
	}

	logger.Info("workload started",
		"run_id", j.ID.String(),
		"arch", string(opts.Architecture),
		"workers", opts.Workers,
		"ops", opts.Ops)

	go func() {
		j.err = g.Wait()
		j.finish()
		close(j.finished)
	}()
	return j, nil
}

// Run starts a run and waits for it.
func Run(ctx context.Context, opts Options) (Report, error) {
	j, err := Start(ctx, opts)
	if err != nil {
		return Report{}, err
	}
	return j.Wait()
}

// Progress returns completed and total operations.
func (j *Job) Progress() (done, total int64) {
	return j.done.Load(), int64(j.opts.Workers) * int64(j.opts.Ops)
}

// Stats returns the allocator's live counters.
func (j *Job) Stats() alloc.Stats { return j.stats() }

// Options returns the effective options of the run.
func (j *Job) Options() Options { return j.opts }

// Finished is closed when the run ends.
func (j *Job) Finished() <-chan struct{} { return j.finished }

// Wait blocks until the run ends and returns its report.
func (j *Job) Wait() (Report, error) {
	<-j.finished
	return j.report, j.err
}

func (j *Job) finish() {
	elapsed := time.Since(j.start)
	ops := j.done.Load()
	j.report = Report{
		RunID:        j.ID.String(),
		Architecture: j.opts.Architecture,
		Workers:      j.opts.Workers,
		Ops:          ops,
		Elapsed:      elapsed,
		Corrupted:    j.corrupt.Load(),
		Stats:        j.stats(),
	}
	if elapsed > 0 {
		j.report.OpsPerSec = float64(ops) / elapsed.Seconds()
	}
	if j.err == nil && j.report.Corrupted > 0 {
		j.err = errors.Wrapf(ErrCorruption, "%d chunks", j.report.Corrupted)
	}

	logger.Info("workload finished",
		"run_id", j.report.RunID,
		"ops", ops,
		"elapsed", elapsed,
		"corrupted", j.report.Corrupted)
}

type slot struct {
	p   unsafe.Pointer
	n   int
	tag byte
}

func (s slot) fill() {
	b := alloc.Bytes(s.p, s.n)
	for i := range b {
		b[i] = s.tag
	}
}

// intact reports whether the first n bytes still carry the slot's tag.
func (s slot) intact(n int) bool {
	for _, b := range alloc.Bytes(s.p, min(n, s.n)) {
		if b != s.tag {
			return false
		}
	}
	return true
}

func (j *Job) work(ctx context.Context, id int, a alloc.Allocator) (err error) {
	rng := rand.New(rand.NewPCG(j.opts.Seed, uint64(id)))
	live := make([]slot, 0, j.opts.MaxLive)

	defer func() {
		for _, s := range live {
			j.check(s, s.n)
			if ferr := a.Free(s.p); ferr != nil && err == nil {
				err = ferr
			}
		}
	}()

	for i := range j.opts.Ops {
		if i&0xff == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		r := rng.IntN(10)
		switch {
		case len(live) == 0 || (r < 5 && len(live) < j.opts.MaxLive):
			s := slot{n: j.size(rng), tag: byte(rng.Uint32())}
			if s.p, err = a.Alloc(s.n); err != nil {
				return err
			}
			s.fill()
			live = append(live, s)

		case r < 8:
			k := rng.IntN(len(live))
			s := live[k]
			j.check(s, s.n)
			if err := a.Free(s.p); err != nil {
				return err
			}
			live[k] = live[len(live)-1]
			live = live[:len(live)-1]

		default:
			k := rng.IntN(len(live))
			s := live[k]
			n := j.size(rng)
			p, err := a.Realloc(s.p, n)
			if err != nil {
				return err
			}
			if n == 0 {
				live[k] = live[len(live)-1]
				live = live[:len(live)-1]
				break
			}
			moved := slot{p: p, n: s.n, tag: s.tag}
			j.check(moved, n)
			moved.n = n
			moved.fill()
			live[k] = moved
		}
		j.done.Inc()
	}
	return nil
}

func (j *Job) size(rng *rand.Rand) int {
	if j.opts.LargeEvery > 0 && rng.IntN(j.opts.LargeEvery) == 0 {
		return format.LargeThreshold + rng.IntN(3*format.PageUnit)
	}
	return rng.IntN(j.opts.MaxSize + 1)
}

func (j *Job) check(s slot, n int) {
	if !s.intact(n) {
		j.corrupt.Inc()
		logger.Error("corrupted chunk", "ptr", uintptr(s.p), "size", s.n)
	}
}
