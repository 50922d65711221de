// Package routing implements the multi-metric Dijkstra kernel (C5):
// bidirectional CH-aware search under a linear-scalarized cost, with
// predecessor-edge path reconstruction and shortcut flattening.
package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/azybler/mvroute/pkg/graph"
	"github.com/azybler/mvroute/pkg/metric"
	"github.com/azybler/mvroute/pkg/routecfg"
)

// ErrNoRoute is returned when the destination is unreachable from the
// source — a runtime condition per spec.md §7, not an error to the caller.
var ErrNoRoute = errors.New("routing: no path found")

// Result is the output of one kernel query: the total scalarized cost and
// the edge-index sequence (forward order, may include shortcuts) that
// achieves it.
type Result struct {
	Cost  float64
	Edges []uint32
}

// Kernel answers Dijkstra queries over a fixed graph store. One Kernel may
// be shared read-only across worker goroutines; each query borrows a
// pooled QueryState so concurrent queries don't contend on heap/array
// allocation.
type Kernel struct {
	store  *graph.Store
	qsPool sync.Pool
}

// NewKernel creates a Kernel over store, with query state pre-sized and
// pre-tolerant for absTol.
func NewKernel(store *graph.Store, absTol float64) *Kernel {
	k := &Kernel{store: store}
	n := store.NumNodes()
	k.qsPool.New = func() any {
		return NewQueryState(n, absTol)
	}
	return k
}

// Route computes one best path from src to dst under cfg's alphas and
// normalizers, scalarizing edge costs as
// cost(e) = Σ_m alpha[m] * metric[e][m] / normalizer[m].
func (k *Kernel) Route(ctx context.Context, src, dst uint32, cfg routecfg.Config) (*Result, error) {
	n := k.store.NumNodes()
	if src >= n {
		return nil, fmt.Errorf("routing: unknown source index %d", src)
	}
	if dst >= n {
		return nil, fmt.Errorf("routing: unknown destination index %d", dst)
	}
	if err := cfg.Alphas.Validate(); err != nil {
		return nil, err
	}

	if src == dst {
		return &Result{Cost: 0, Edges: nil}, nil
	}

	qs := k.qsPool.Get().(*QueryState)
	defer func() {
		qs.Reset()
		k.qsPool.Put(qs)
	}()

	if k.store.HasLevels() {
		return k.routeBidirectional(ctx, qs, src, dst, cfg)
	}
	return k.routeUnidirectional(ctx, qs, src, dst, cfg)
}

func (k *Kernel) edgeCost(e uint32, cfg routecfg.Config) float64 {
	return metric.DotCost(k.store.Edge(e).Metrics, cfg.Alphas, cfg.Normalizers)
}

// routeBidirectional runs the forward/backward upward-only CH search
// described in spec.md §4.2: forward search expands only upward edges from
// src, backward search expands only upward edges from dst via the
// backward view, and the search terminates once neither heap's minimum can
// still beat the best meeting candidate found so far.
func (k *Kernel) routeBidirectional(ctx context.Context, qs *QueryState, src, dst uint32, cfg routecfg.Config) (*Result, error) {
	qs.touchFwd(src, 0)
	qs.FwdPQ.Push(src, 0)
	qs.touchBwd(dst, 0)
	qs.BwdPQ.Push(dst, 0)

	mu := math.Inf(1)
	meetNode := noNode
	iterations := 0

	for {
		fwdMin := qs.FwdPQ.PeekCost()
		bwdMin := qs.BwdPQ.PeekCost()
		if fwdMin >= mu && bwdMin >= mu {
			break
		}

		iterations++
		if iterations&255 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if fwdMin < mu {
			item := qs.FwdPQ.Pop()
			u, d := item.Node, item.Cost
			if d <= qs.DistFwd[u] {
				if !math.IsInf(qs.DistBwd[u], 1) {
					if cand := d + qs.DistBwd[u]; cand < mu {
						mu, meetNode = cand, u
					}
				}
				start, end := k.store.ForwardRange(u)
				for e := start; e < end; e++ {
					if !k.store.IsUpward(e) {
						continue
					}
					v := k.store.Edge(e).Dst
					nd := d + k.edgeCost(e, cfg)
					if nd < qs.DistFwd[v] {
						qs.touchFwd(v, nd)
						qs.FwdPQ.Push(v, nd)
						qs.PredFwd[v] = e
					}
				}
			}
		}

		if qs.BwdPQ.PeekCost() < mu {
			item := qs.BwdPQ.Pop()
			u, d := item.Node, item.Cost
			if d <= qs.DistBwd[u] {
				if !math.IsInf(qs.DistFwd[u], 1) {
					if cand := qs.DistFwd[u] + d; cand < mu {
						mu, meetNode = cand, u
					}
				}
				start, end := k.store.BackwardRange(u)
				for i := start; i < end; i++ {
					e := k.store.BwdOrder[i]
					ed := k.store.Edge(e)
					if k.store.Node(ed.Src).Level < k.store.Node(ed.Dst).Level {
						continue
					}
					v := ed.Src
					nd := d + k.edgeCost(e, cfg)
					if nd < qs.DistBwd[v] {
						qs.touchBwd(v, nd)
						qs.BwdPQ.Push(v, nd)
						qs.PredBwd[v] = e
					}
				}
			}
		}
	}

	if meetNode == noNode || math.IsInf(mu, 1) {
		return nil, ErrNoRoute
	}

	edges := k.reconstructBidirectional(qs, meetNode)
	return &Result{Cost: mu, Edges: edges}, nil
}

// routeUnidirectional runs a standard Dijkstra over the forward view only,
// the degraded algorithm used when the graph has no (or uniform) CH levels
// — graph iteration 0, before the first external CH build.
func (k *Kernel) routeUnidirectional(ctx context.Context, qs *QueryState, src, dst uint32, cfg routecfg.Config) (*Result, error) {
	qs.touchFwd(src, 0)
	qs.FwdPQ.Push(src, 0)

	iterations := 0
	for qs.FwdPQ.Len() > 0 {
		iterations++
		if iterations&255 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		item := qs.FwdPQ.Pop()
		u, d := item.Node, item.Cost
		if d > qs.DistFwd[u] {
			continue // stale entry
		}
		if u == dst {
			return &Result{Cost: d, Edges: k.reconstructForward(qs, dst)}, nil
		}

		start, end := k.store.ForwardRange(u)
		for e := start; e < end; e++ {
			v := k.store.Edge(e).Dst
			nd := d + k.edgeCost(e, cfg)
			if nd < qs.DistFwd[v] {
				qs.touchFwd(v, nd)
				qs.FwdPQ.Push(v, nd)
				qs.PredFwd[v] = e
			}
		}
	}

	return nil, ErrNoRoute
}

// reconstructForward walks PredFwd from node back to its seed, returning
// edges in source-to-node order.
func (k *Kernel) reconstructForward(qs *QueryState, node uint32) []uint32 {
	var rev []uint32
	for {
		e := qs.PredFwd[node]
		if e == noEdge {
			break
		}
		rev = append(rev, e)
		node = k.store.Edge(e).Src
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// reconstructBidirectional builds the full edge sequence from the forward
// seed, through meetNode, to the backward seed: the forward half is walked
// backward via PredFwd then reversed, the backward half is walked forward
// directly via PredBwd (since PredBwd already points away from meetNode,
// toward the destination seed).
func (k *Kernel) reconstructBidirectional(qs *QueryState, meetNode uint32) []uint32 {
	fwd := k.reconstructForward(qs, meetNode)

	node := meetNode
	for {
		e := qs.PredBwd[node]
		if e == noEdge {
			break
		}
		fwd = append(fwd, e)
		node = k.store.Edge(e).Dst
	}
	return fwd
}
