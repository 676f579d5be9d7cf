package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/spf13/cobra"

	"github.com/momentics/hioload-mem/affinity"
	"github.com/momentics/hioload-mem/api"
	"github.com/momentics/hioload-mem/control"
	"github.com/momentics/hioload-mem/pool"
)

var (
	runWorkers int
	runOps     int
	runMinSize int
	runMaxSize int
	runWindow  int
	runSeed    uint64
	runPin     bool
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().IntVar(&runWorkers, "workers", runtime.NumCPU(), "Concurrent workers, each with its own cache")
	cmd.Flags().IntVar(&runOps, "ops", 100000, "Operations per worker")
	cmd.Flags().IntVar(&runMinSize, "min-size", 1, "Smallest request in bytes")
	cmd.Flags().IntVar(&runMaxSize, "max-size", 4096, "Largest request in bytes")
	cmd.Flags().IntVar(&runWindow, "window", 64, "Live blocks a worker holds before freeing the oldest")
	cmd.Flags().Uint64Var(&runSeed, "seed", 1, "Workload seed")
	cmd.Flags().BoolVar(&runPin, "pin", false, "Pin worker i to the i-th allowed CPU, wrapping around")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a concurrent allocate/free workload",
		Long: `The run command starts N workers, each attached to its own cache. Every
worker performs K operations, allocating random sizes and freeing its oldest
live block, then returns everything. The command fails if any block is
missing from the global free lists afterwards.

Example:
  hioload-memstress run --workers 8 --ops 1000000
  hioload-memstress run --workers 4 --max-size 60000 --pin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd.OutOrStdout())
		},
	}
}

type workerResult struct {
	allocs     int64
	frees      int64
	exhausted  int64
	corrupt    int64
	cache      api.CacheStats
	pinFailure error
}

func validateRunFlags() error {
	switch {
	case runWorkers < 1:
		return errors.New("--workers must be at least 1")
	case runOps < 0:
		return errors.New("--ops must not be negative")
	case runMinSize < 1 || runMaxSize < runMinSize:
		return errors.New("need 1 <= --min-size <= --max-size")
	case runWindow < 1:
		return errors.New("--window must be at least 1")
	}
	return nil
}

func runStress(out io.Writer) error {
	if err := validateRunFlags(); err != nil {
		return err
	}
	log, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	alloc, err := pool.New(poolConfig(log))
	if err != nil {
		return fmt.Errorf("failed to build pool: %w", err)
	}
	defer alloc.Close()

	p := alloc.Pool()
	if runMaxSize > p.MaxPayload() {
		return fmt.Errorf("--max-size %d exceeds max payload %d", runMaxSize, p.MaxPayload())
	}
	before := p.Stats().FreeBlocks()

	var cpus []int
	if runPin {
		if cpus, err = affinity.AllowedCPUs(); err != nil {
			log.Warn("cannot list allowed CPUs, running unpinned", slog.Any("err", err))
		}
	}

	results := make([]workerResult, runWorkers)
	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < runWorkers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			results[id] = runWorker(id, alloc, cpus)
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	st := p.Stats()
	reg := control.NewMetricsRegistry()
	control.PublishPoolStats(reg, st)
	var total workerResult
	for i, r := range results {
		total.allocs += r.allocs
		total.frees += r.frees
		total.exhausted += r.exhausted
		total.corrupt += r.corrupt
		control.PublishCacheStats(reg, fmt.Sprintf("w%d", i), r.cache)
		if r.pinFailure != nil {
			log.Warn("pinning failed", slog.Int("worker", i), slog.Any("err", r.pinFailure))
		}
	}
	leaked := before - st.FreeBlocks()
	report(out, reg, total, leaked, elapsed)

	switch {
	case leaked != 0:
		return fmt.Errorf("%d blocks missing from the global free lists", leaked)
	case total.corrupt != 0:
		return fmt.Errorf("%d blocks observed with foreign payload", total.corrupt)
	}
	return nil
}

// runWorker keeps a FIFO of live blocks; the oldest is freed first so
// blocks cross the drain/refill boundary regularly. Every payload holds at
// least eight bytes, enough for the owner stamp. A non-empty cpus pins the
// worker to cpus[id mod len].
func runWorker(id int, alloc *pool.Allocator, cpus []int) (res workerResult) {
	if len(cpus) > 0 {
		if err := affinity.SetAffinity(cpus[id%len(cpus)]); err != nil {
			res.pinFailure = err
		} else {
			defer affinity.Unpin()
		}
	}
	c := alloc.Attach()
	defer func() {
		res.cache = c.Stats()
		c.Close()
	}()

	rng := rand.New(rand.NewPCG(runSeed, uint64(id)))
	stamp := uint64(id) + 1
	live := queue.New()
	release := func() {
		b := live.Remove().(*pool.Block)
		if binary.LittleEndian.Uint64(b.Bytes()) != stamp {
			res.corrupt++
		}
		c.Free(b)
		res.frees++
	}

	for i := 0; i < runOps; i++ {
		if live.Length() >= runWindow || (live.Length() > 0 && rng.IntN(3) == 0) {
			release()
			continue
		}
		b, err := c.Allocate(runMinSize + rng.IntN(runMaxSize-runMinSize+1))
		if err != nil {
			res.exhausted++
			if live.Length() > 0 {
				release()
			}
			continue
		}
		binary.LittleEndian.PutUint64(b.Bytes(), stamp)
		live.Add(b)
		res.allocs++
	}
	for live.Length() > 0 {
		release()
	}
	return res
}

func report(out io.Writer, reg *control.MetricsRegistry, total workerResult, leaked int, elapsed time.Duration) {
	snap := reg.GetSnapshot()
	pr := printer()
	ops := total.allocs + total.frees
	rate := 0.0
	if elapsed > 0 {
		rate = float64(ops) / elapsed.Seconds()
	}
	pr.Fprintf(out, "workers      %d\n", runWorkers)
	pr.Fprintf(out, "allocations  %d\n", total.allocs)
	pr.Fprintf(out, "frees        %d\n", total.frees)
	pr.Fprintf(out, "exhausted    %d\n", total.exhausted)
	pr.Fprintf(out, "elapsed      %v\n", elapsed.Round(time.Microsecond))
	pr.Fprintf(out, "throughput   %.0f ops/s\n", rate)
	pr.Fprintf(out, "free blocks  %d of %d\n", snap["pool.free_blocks"], snap["pool.capacity"])
	pr.Fprintf(out, "node allocs  %d\n", snap["pool.node_allocs"])
	pr.Fprintf(out, "hazard slots %d\n", snap["pool.hazard_slots"])
	pr.Fprintf(out, "double frees %d\n", snap["pool.double_frees"])
	pr.Fprintf(out, "leaked       %d\n", leaked)
}
