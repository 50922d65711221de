// Package ch implements Contraction Hierarchies preprocessing for
// multi-ch-constructor: given a graph's unordered node/edge records and its
// metric schema, it assigns a contraction order (node levels) and produces
// the shortcut edges that make the CH upward-search invariant hold,
// handing the result back as plain graph.NodeRecord/graph.EdgeRecord slices
// for graph.Builder to finalize.
package ch

import (
	"container/heap"
	"fmt"
	"log"
	"math"

	"github.com/azybler/mvroute/pkg/graph"
	"github.com/azybler/mvroute/pkg/metric"
)

// maxShortcutsPerNode is the limit on shortcuts a single contraction can create.
// Nodes exceeding this form an uncontracted "core" at the top of the hierarchy.
const maxShortcutsPerNode = 1000

// adjEntry represents an edge in the mutable adjacency list. edgeIdx
// addresses the growing edges slice (original edges first, appended
// shortcuts after) so that a shortcut's Child0/Child1 can be resolved
// directly once contraction finishes — no middle-node indirection.
type adjEntry struct {
	to      uint32
	edgeIdx uint32
	cost    float64 // scalarized multi-metric cost, for witness search / priority
}

// Contract runs Contraction Hierarchies preprocessing and returns the node
// records with Level set to their contraction rank, plus the full edge set
// (original + shortcuts) with Child0/Child1 addressing positions in the
// returned slice — ready for graph.NewBuilder.
//
// acc is the priority-recompute accuracy in (0,1]: 1 recomputes a node's
// exact priority before every contraction (most accurate, slowest); smaller
// values contract several nodes per exact recompute, trading ordering
// quality for speed.
func Contract(nodes []graph.NodeRecord, edges []graph.EdgeRecord, schema *metric.Schema, acc float64) ([]graph.NodeRecord, []graph.EdgeRecord, error) {
	if schema == nil || schema.Dim() == 0 {
		return nil, nil, fmt.Errorf("ch: contract requires a non-empty metric schema")
	}
	n := uint32(len(nodes))
	if n == 0 {
		return nil, nil, nil
	}

	extID := make([]uint64, n)
	idxOf := make(map[uint64]uint32, n)
	for i, nd := range nodes {
		extID[i] = nd.ExternalID
		idxOf[nd.ExternalID] = uint32(i)
	}

	allEdges := make([]graph.EdgeRecord, len(edges))
	copy(allEdges, edges)

	cols := make([][]float64, schema.Dim())
	for _, e := range edges {
		for m, v := range e.Metrics {
			cols[m] = append(cols[m], v)
		}
	}
	norm := metric.MeanNormalizers(cols)
	alphas := make(metric.Alphas, schema.Dim())
	for i := range alphas {
		alphas[i] = 1
	}
	scalarize := func(m []float64) float64 { return metric.Scalarize(m, alphas, norm) }

	outAdj := make([][]adjEntry, n)
	inAdj := make([][]adjEntry, n)
	for i, e := range edges {
		src, ok := idxOf[e.SrcExternalID]
		if !ok {
			return nil, nil, fmt.Errorf("ch: edge %d references unknown source node %d", i, e.SrcExternalID)
		}
		dst, ok := idxOf[e.DstExternalID]
		if !ok {
			return nil, nil, fmt.Errorf("ch: edge %d references unknown destination node %d", i, e.DstExternalID)
		}
		cost := scalarize(e.Metrics)
		outAdj[src] = append(outAdj[src], adjEntry{to: dst, edgeIdx: uint32(i), cost: cost})
		inAdj[dst] = append(inAdj[dst], adjEntry{to: src, edgeIdx: uint32(i), cost: cost})
	}

	contracted := make([]bool, n)
	rank := make([]uint32, n)
	contractedNeighbors := make([]int, n)
	level := make([]int, n)

	pq := make(priorityQueue, n)
	for i := uint32(0); i < n; i++ {
		pq[i] = &pqEntry{
			node:     i,
			priority: computePriority(outAdj, inAdj, i, contracted, contractedNeighbors[i], level[i]),
			index:    int(i),
		}
	}
	heap.Init(&pq)

	ws := newWitnessState(n)

	recomputeEvery := 1
	if acc > 0 && acc < 1 {
		recomputeEvery = int(math.Round(1 / acc))
		if recomputeEvery < 1 {
			recomputeEvery = 1
		}
	}

	log.Printf("Starting contraction of %d nodes (schema dim %d, recompute-every %d)...", n, schema.Dim(), recomputeEvery)

	var totalShortcuts int
	order := uint32(0)
	attempts := 0
	logInterval := uint32(50000)

	for pq.Len() > 0 {
		entry := heap.Pop(&pq).(*pqEntry)
		node := entry.node

		if contracted[node] {
			continue
		}

		attempts++
		if attempts%recomputeEvery == 0 {
			newPriority := computePriority(outAdj, inAdj, node, contracted, contractedNeighbors[node], level[node])
			if newPriority > entry.priority && pq.Len() > 0 && newPriority > pq[0].priority {
				entry.priority = newPriority
				heap.Push(&pq, entry)
				continue
			}
		}

		shortcuts := findShortcuts(ws, outAdj, inAdj, node, contracted, scalarize)

		if len(shortcuts) > maxShortcutsPerNode {
			log.Printf("Stopping contraction: node %d would create %d shortcuts (limit %d). %d nodes remain in core.",
				node, len(shortcuts), maxShortcutsPerNode, n-order)
			break
		}

		contracted[node] = true
		rank[node] = order
		order++
		totalShortcuts += len(shortcuts)

		for _, sc := range shortcuts {
			scMetrics := make([]float64, schema.Dim())
			c0, c1 := allEdges[sc.childIn], allEdges[sc.childOut]
			for m := range scMetrics {
				scMetrics[m] = schema.Combine(m, c0.Metrics[m], c1.Metrics[m])
			}
			scIdx := uint32(len(allEdges))
			allEdges = append(allEdges, graph.EdgeRecord{
				SrcExternalID: extID[sc.from],
				DstExternalID: extID[sc.to],
				Metrics:       scMetrics,
				Child0:        int32(sc.childIn),
				Child1:        int32(sc.childOut),
			})
			cost := scalarize(scMetrics)
			outAdj[sc.from] = append(outAdj[sc.from], adjEntry{to: sc.to, edgeIdx: scIdx, cost: cost})
			inAdj[sc.to] = append(inAdj[sc.to], adjEntry{to: sc.from, edgeIdx: scIdx, cost: cost})
		}

		for _, e := range outAdj[node] {
			if !contracted[e.to] {
				contractedNeighbors[e.to]++
				if level[node]+1 > level[e.to] {
					level[e.to] = level[node] + 1
				}
			}
		}
		for _, e := range inAdj[node] {
			if !contracted[e.to] {
				contractedNeighbors[e.to]++
				if level[node]+1 > level[e.to] {
					level[e.to] = level[node] + 1
				}
			}
		}

		remaining := n - order
		switch {
		case remaining < 1000:
			logInterval = 100
		case remaining < 10000:
			logInterval = 1000
		case remaining < 100000:
			logInterval = 10000
		default:
			logInterval = 50000
		}
		if order%logInterval == 0 {
			log.Printf("Contracted %d/%d nodes, %d shortcuts so far", order, n, totalShortcuts)
		}
	}

	for i := uint32(0); i < n; i++ {
		if !contracted[i] {
			contracted[i] = true
			rank[i] = order
			order++
		}
	}

	log.Printf("Contraction complete: %d shortcuts created (%.1fx original edges)",
		totalShortcuts, float64(totalShortcuts)/float64(len(edges)))

	outNodes := make([]graph.NodeRecord, n)
	for i, nd := range nodes {
		outNodes[i] = nd
		outNodes[i].Level = int32(rank[i])
	}

	return outNodes, allEdges, nil
}

// shortcut represents a shortcut edge to be added, addressed by its two
// children's positions in the growing edges slice.
type shortcut struct {
	from, to          uint32
	childIn, childOut uint32
}

// findShortcuts determines which shortcuts are needed when contracting a
// node. Uses batch witness search: one Dijkstra per incoming neighbor
// instead of one per (incoming, outgoing) pair, reducing the search count
// from O(|in|*|out|) to O(|in|).
func findShortcuts(ws *witnessState, outAdj, inAdj [][]adjEntry, node uint32, contracted []bool, scalarize func([]float64) float64) []shortcut {
	var incoming []adjEntry
	for _, e := range inAdj[node] {
		if !contracted[e.to] {
			incoming = append(incoming, e)
		}
	}

	var outgoing []adjEntry
	for _, e := range outAdj[node] {
		if !contracted[e.to] {
			outgoing = append(outgoing, e)
		}
	}

	if len(incoming) == 0 || len(outgoing) == 0 {
		return nil
	}

	var shortcuts []shortcut

	for _, in := range incoming {
		var maxOut float64
		for _, out := range outgoing {
			if out.to != in.to && out.cost > maxOut {
				maxOut = out.cost
			}
		}
		if maxOut == 0 {
			continue
		}

		maxWeight := in.cost + maxOut
		batchWitnessSearch(ws, outAdj, in.to, node, maxWeight, contracted)

		for _, out := range outgoing {
			if out.to == in.to {
				continue
			}
			scCost := in.cost + out.cost
			if ws.dist[out.to] > scCost {
				shortcuts = append(shortcuts, shortcut{
					from:     in.to,
					to:       out.to,
					childIn:  in.edgeIdx,
					childOut: out.edgeIdx,
				})
			}
		}
	}

	return shortcuts
}

// computePriority returns the priority for a node (lower = contract first).
func computePriority(outAdj, inAdj [][]adjEntry, node uint32, contracted []bool, contractedNeighbors, level int) int {
	activeIn := 0
	for _, e := range inAdj[node] {
		if !contracted[e.to] {
			activeIn++
		}
	}
	activeOut := 0
	for _, e := range outAdj[node] {
		if !contracted[e.to] {
			activeOut++
		}
	}

	edgeDifference := activeIn*activeOut - (activeIn + activeOut)

	return edgeDifference + 2*contractedNeighbors + level
}

// Priority queue implementation for contraction ordering.

type pqEntry struct {
	node     uint32
	priority int
	index    int
}

type priorityQueue []*pqEntry

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	entry := x.(*pqEntry)
	entry.index = len(*pq)
	*pq = append(*pq, entry)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*pq = old[:n-1]
	return entry
}
