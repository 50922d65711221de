// Package explorator implements the convex-hull path explorator (C6): given
// an origin/destination pair, it repeatedly perturbs the Dijkstra kernel's
// alpha weights along the convex hull of cost vectors already found, until
// every front facet of the hull has been explored and no further
// improvement is possible.
package explorator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/azybler/mvroute/pkg/graph"
	"github.com/azybler/mvroute/pkg/metric"
	"github.com/azybler/mvroute/pkg/routecfg"
	"github.com/azybler/mvroute/pkg/routing"
)

// maxRounds bounds the facet-exploration loop, mirroring routing.Flatten's
// maxUnpackDepth backstop: legitimate runs converge in a handful of rounds
// since every explored facet is never re-added, but a backstop keeps a
// pathological tolerance/graph combination from looping forever.
const maxRounds = 500

// PathResult is one Pareto-equivalent path found by the explorator: its
// flattened (non-shortcut) edge sequence and multi-metric cost vector.
type PathResult struct {
	Edges []uint32
	Cost  metric.Vector
}

// Explorator enumerates Pareto-optimal paths between an OD-pair by
// alternating convex-hull facet computation with kernel re-queries.
type Explorator struct {
	store  *graph.Store
	kernel *routing.Kernel
}

// NewExplorator creates an Explorator over store's graph, delegating
// individual shortest-path queries to kernel.
func NewExplorator(store *graph.Store, kernel *routing.Kernel) *Explorator {
	return &Explorator{store: store, kernel: kernel}
}

// Explore returns the set of Pareto-optimal paths from src to dst under
// cfg, seeded by one axis-aligned query per non-degenerate metric and then
// refined by convex-hull facet exploration until every front facet is
// explored. degenerate[m] marks metric m as permanently zero-weighted
// (skipped during seeding) — the "degenerate axes" rule.
func (ex *Explorator) Explore(ctx context.Context, src, dst uint32, cfg routecfg.Config, degenerate []bool) ([]PathResult, error) {
	dim := len(cfg.Alphas)

	var paths []PathResult
	seen := make(map[string]bool)

	addPath := func(res *routing.Result) bool {
		flat := routing.Flatten(ex.store, res.Edges)
		key := edgeKey(flat)
		if seen[key] {
			return false
		}
		seen[key] = true
		paths = append(paths, PathResult{Edges: flat, Cost: PathVector(ex.store, flat)})
		return true
	}

	for m := 0; m < dim; m++ {
		if m < len(degenerate) && degenerate[m] {
			continue
		}
		axis := make(metric.Alphas, dim)
		axis[m] = 1
		res, err := ex.kernel.Route(ctx, src, dst, cfg.WithAlphas(axis))
		if err == routing.ErrNoRoute {
			continue
		}
		if err != nil {
			return nil, err
		}
		addPath(res)
	}

	if len(paths) == 0 {
		return nil, nil
	}

	explored := make(map[string]bool)
	for round := 0; round < maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(paths) < dim {
			break // not enough points yet to define a facet
		}

		// Points are expressed in normalizer-adjusted coordinates so that a
		// facet's hyperplane value matches metric.DotCost's scalarization
		// exactly — both divide each column by cfg.Normalizers[m] before
		// weighting it.
		points := make([][]float64, len(paths))
		for i, p := range paths {
			row := make([]float64, dim)
			for m := 0; m < dim; m++ {
				row[m] = p.Cost[m] / cfg.Normalizers[m]
			}
			points[i] = row
		}
		facets := LowerHullFacets(points, cfg.Tolerance)

		progressed := false
		for _, f := range facets {
			fk := facetKey(f)
			if explored[fk] {
				continue
			}

			alphas, ok := renormalize(f.Normal)
			if !ok {
				explored[fk] = true
				continue
			}

			res, err := ex.kernel.Route(ctx, src, dst, cfg.WithAlphas(alphas))
			if err == routing.ErrNoRoute {
				explored[fk] = true
				continue
			}
			if err != nil {
				return nil, err
			}

			planeVal := facetPlaneValue(points, f, alphas)
			if res.Cost < planeVal-cfg.Tolerance {
				if addPath(res) {
					progressed = true
				} else {
					explored[fk] = true
				}
			} else {
				explored[fk] = true
			}
		}

		if !progressed {
			break
		}
	}

	return paths, nil
}

// PathVector sums a flattened (non-shortcut) edge sequence's metric vectors
// column by column, following each column's CombineRule — the same rule
// applied repeatedly along a path as metric.Schema.Combine applies it to a
// single shortcut's two children. Exported so callers outside the
// explorator (a plain single-best-path query, for instance) can compute a
// path's cost vector the same way.
func PathVector(store *graph.Store, edges []uint32) metric.Vector {
	dim := store.Schema.Dim()
	v := make(metric.Vector, dim)
	first := true
	for _, e := range edges {
		m := store.Edge(e).Metrics
		if first {
			copy(v, m)
			first = false
			continue
		}
		for c := 0; c < dim; c++ {
			v[c] = store.Schema.Combine(c, v[c], m[c])
		}
	}
	return v
}

// renormalize scales a facet normal so its components sum to 1, the
// convention routecfg.Config.Alphas expects. Reports false if the normal is
// all-zero (a degenerate facet that cannot be turned into a query).
func renormalize(normal []float64) (metric.Alphas, bool) {
	var sum float64
	for _, x := range normal {
		sum += x
	}
	if sum <= 0 {
		return nil, false
	}
	out := make(metric.Alphas, len(normal))
	for i, x := range normal {
		out[i] = x / sum
	}
	return out, true
}

// facetPlaneValue evaluates the facet's hyperplane (through its first
// point) at the query alphas, giving the cost threshold a new path's
// scalarized cost must beat to count as an improvement.
func facetPlaneValue(points [][]float64, f *Facet, alphas metric.Alphas) float64 {
	base := points[f.Points[0]]
	var val float64
	for i, a := range alphas {
		val += a * base[i]
	}
	return val
}

func facetKey(f *Facet) string {
	idx := make([]int, len(f.Points))
	copy(idx, f.Points)
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func edgeKey(edges []uint32) string {
	var b strings.Builder
	for i, e := range edges {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", e)
	}
	return b.String()
}
