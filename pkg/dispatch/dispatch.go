// Package dispatch implements the multithreading dispatcher (C8): a fixed
// pool of workers that partitions a route-pair workload across OS threads,
// each with its own deterministically-seeded PRNG and reusable Dijkstra /
// explorator state, and reduces their per-edge workload counters into one
// deterministic result.
package dispatch

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/azybler/mvroute/pkg/explorator"
	"github.com/azybler/mvroute/pkg/graph"
	"github.com/azybler/mvroute/pkg/routecfg"
	"github.com/azybler/mvroute/pkg/routing"
)

// RoutePair is one (origin, destination, multiplicity) workload entry — the
// unit of work partitioned across workers.
type RoutePair struct {
	Src, Dst    uint32
	Multiplicity int
}

// Result is the outcome of running one batch of route-pairs: the reduced
// per-edge counter vector, indexed by edge index.
type Result struct {
	Counters []float64
}

// Config controls worker count and the per-run PRNG seed. Workers is
// clamped to at least 1; Seed is combined with each worker's index so
// worker PRNGs are reproducible and mutually independent given the same
// run seed and worker count, per spec.md §5's determinism requirement.
type Config struct {
	Workers int
	Seed    int64
	RouteCfg routecfg.Config
	Degenerate []bool
}

// Run partitions pairs across cfg.Workers workers, each processing its
// slice of pairs in input order (spec.md §5: "within a worker, queries...
// are processed in input order"), and reduces all per-worker counters by
// element-wise sum. A fatal error from any worker cancels the remaining
// workers and is returned to the caller; no partial Result is returned on
// error.
func Run(ctx context.Context, store *graph.Store, pairs []RoutePair, cfg Config) (*Result, error) {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(pairs) && len(pairs) > 0 {
		workers = len(pairs)
	}

	numEdges := int(store.NumEdges())
	totals := make([][]float64, workers)

	g, gctx := errgroup.WithContext(ctx)
	batches := partition(pairs, workers)

	for w := 0; w < workers; w++ {
		w := w
		batch := batches[w]
		g.Go(func() error {
			counter := make([]float64, numEdges)
			prng := rand.New(rand.NewSource(cfg.Seed ^ int64(w)))
			kernel := routing.NewKernel(store, cfg.RouteCfg.Tolerance)
			ex := explorator.NewExplorator(store, kernel)

			for _, rp := range batch {
				if err := gctx.Err(); err != nil {
					return err
				}
				paths, err := ex.Explore(gctx, rp.Src, rp.Dst, cfg.RouteCfg, cfg.Degenerate)
				if err != nil {
					return err
				}
				if len(paths) == 0 {
					continue
				}
				for i := 0; i < rp.Multiplicity; i++ {
					p := paths[prng.Intn(len(paths))]
					for _, e := range p.Edges {
						counter[e]++
					}
				}
			}
			totals[w] = counter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	reduced := make([]float64, numEdges)
	for _, counter := range totals {
		for e, v := range counter {
			reduced[e] += v
		}
	}
	return &Result{Counters: reduced}, nil
}

// partition splits pairs into workers contiguous, near-equal slices,
// preserving input order within each slice — workers after len(pairs) get
// an empty slice rather than panicking on an oversized worker count.
func partition(pairs []RoutePair, workers int) [][]RoutePair {
	out := make([][]RoutePair, workers)
	if workers == 0 {
		return out
	}
	base := len(pairs) / workers
	rem := len(pairs) % workers
	start := 0
	for w := 0; w < workers; w++ {
		size := base
		if w < rem {
			size++
		}
		out[w] = pairs[start : start+size]
		start += size
	}
	return out
}
