package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hmalloc/alloc"
	"github.com/joshuapare/hmalloc/internal/workload"
)

var stressFlags struct {
	arch       string
	workers    int
	ops        int
	maxSize    int
	maxLive    int
	largeEvery int
	seed       uint64
	slabPages  int
	growPages  int
	hardened   bool
	validate   bool
	listen     string
}

func init() {
	cmd := newStressCmd()
	addWorkloadFlags(cmd)
	cmd.Flags().StringVar(&stressFlags.listen, "listen", "", "Serve live counters over HTTP on this address (e.g. :8089)")
	rootCmd.AddCommand(cmd)
}

// addWorkloadFlags registers the flags shared by stress and top.
func addWorkloadFlags(cmd *cobra.Command) {
	def := workload.DefaultOptions()
	f := cmd.Flags()
	f.StringVar(&stressFlags.arch, "arch", string(def.Architecture), "Allocator architecture (segregated, coalescing)")
	f.IntVarP(&stressFlags.workers, "workers", "w", def.Workers, "Concurrent workers")
	f.IntVarP(&stressFlags.ops, "ops", "n", def.Ops, "Operations per worker")
	f.IntVar(&stressFlags.maxSize, "max-size", def.MaxSize, "Largest small request in bytes")
	f.IntVar(&stressFlags.maxLive, "max-live", def.MaxLive, "Live chunks per worker before releasing")
	f.IntVar(&stressFlags.largeEvery, "large-every", def.LargeEvery, "One large object per N allocations (0 disables)")
	f.Uint64Var(&stressFlags.seed, "seed", def.Seed, "Random seed")
	f.IntVar(&stressFlags.slabPages, "slab-pages", def.Engine.SlabPages, "Page units per slab")
	f.IntVar(&stressFlags.growPages, "grow-pages", def.Engine.GrowPages, "Page units per coalescing refill")
	f.BoolVar(&stressFlags.hardened, "hardened", false, "Tag live headers and detect double free")
	f.BoolVar(&stressFlags.validate, "validate", false, "Validate free-list ordering on every release")
}

func newStressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stress",
		Short: "Run a concurrent allocation workload",
		Long: `The stress command runs randomized allocate/release/resize traffic from
several goroutines, verifies every live chunk, and reports throughput and
allocator counters.

Example:
  hmallocctl stress
  hmallocctl stress --arch coalescing --workers 8 --ops 200000 --hardened
  hmallocctl stress --listen :8089 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := workloadOptions()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runStress(ctx, opts)
		},
	}
}

func workloadOptions() (workload.Options, error) {
	arch, ok := alloc.ParseArchitecture(stressFlags.arch)
	if !ok {
		return workload.Options{}, fmt.Errorf("unknown architecture %q (want segregated or coalescing)", stressFlags.arch)
	}
	return workload.Options{
		Architecture: arch,
		Engine: alloc.Config{
			SlabPages: stressFlags.slabPages,
			GrowPages: stressFlags.growPages,
			Hardened:  stressFlags.hardened,
			Validate:  stressFlags.validate,
		},
		Workers:    stressFlags.workers,
		Ops:        stressFlags.ops,
		MaxSize:    stressFlags.maxSize,
		MaxLive:    stressFlags.maxLive,
		LargeEvery: stressFlags.largeEvery,
		Seed:       stressFlags.seed,
	}, nil
}

func runStress(ctx context.Context, opts workload.Options) error {
	printVerbose("CPU: %s\n", cpuBanner())

	job, err := workload.Start(ctx, opts)
	if err != nil {
		return err
	}
	printVerbose("Run %s: %s, %d workers x %d ops\n", job.ID, opts.Architecture, opts.Workers, opts.Ops)

	if stressFlags.listen != "" {
		srv, addr, err := serveStats(stressFlags.listen, job)
		if err != nil {
			return err
		}
		defer func() { _ = srv.Shutdown() }()
		printVerbose("Serving counters on http://%s/stats\n", addr)
	}

	rep, err := job.Wait()
	if jsonOut {
		if jerr := printJSON(rep); jerr != nil {
			return jerr
		}
		return err
	}

	printReport(rep)
	if err != nil {
		printError("%v\n", err)
		return err
	}
	return nil
}

func printReport(rep workload.Report) {
	status := style(okStyle).Render("OK")
	if rep.Corrupted > 0 {
		status = style(failStyle).Render(fmt.Sprintf("%d CORRUPTED", rep.Corrupted))
	}

	printInfo("%s %s\n", style(titleStyle).Render("Run"), rep.RunID)
	printInfo("  Architecture: %s\n", rep.Architecture)
	printInfo("  Workers:      %d\n", rep.Workers)
	printInfo("  Operations:   %s in %s (%s ops/s)\n",
		formatNumber(rep.Ops), rep.Elapsed.Round(time.Millisecond), formatNumber(int64(rep.OpsPerSec)))
	printInfo("  Integrity:    %s\n\n", status)
	printInfo("%s\n", renderStats(rep.Stats))
}
