package routing

import "math"

// QueryState holds per-query mutable state for bidirectional CH Dijkstra:
// distance and predecessor-edge arrays for both directions, plus the two
// priority queues. Reused across queries via sync.Pool in Kernel to avoid
// reallocating these arrays for every one of the millions of queries a
// balancing iteration issues (the teacher's Engine does the same with its
// qsPool).
type QueryState struct {
	DistFwd []float64
	DistBwd []float64
	// PredFwd/PredBwd record the edge index used to reach a node in each
	// direction's search, not a predecessor node — spec.md §4.2 requires
	// "a predecessor-edge-index per settled node" since the edge identity
	// (original vs. shortcut) is what path reconstruction needs.
	PredFwd []uint32
	PredBwd []uint32
	Touched []uint32
	FwdPQ   MinHeap
	BwdPQ   MinHeap
}

// NewQueryState creates a QueryState sized for a graph with n nodes.
func NewQueryState(n uint32, absTol float64) *QueryState {
	distFwd := make([]float64, n)
	distBwd := make([]float64, n)
	predFwd := make([]uint32, n)
	predBwd := make([]uint32, n)
	for i := range distFwd {
		distFwd[i] = math.Inf(1)
		distBwd[i] = math.Inf(1)
		predFwd[i] = noEdge
		predBwd[i] = noEdge
	}
	return &QueryState{
		DistFwd: distFwd,
		DistBwd: distBwd,
		PredFwd: predFwd,
		PredBwd: predBwd,
		Touched: make([]uint32, 0, 1024),
		FwdPQ:   MinHeap{items: make([]PQItem, 0, 256), AbsTol: absTol},
		BwdPQ:   MinHeap{items: make([]PQItem, 0, 256), AbsTol: absTol},
	}
}

// Reset clears only the touched entries, for fast reuse across queries.
func (qs *QueryState) Reset() {
	for _, node := range qs.Touched {
		qs.DistFwd[node] = math.Inf(1)
		qs.DistBwd[node] = math.Inf(1)
		qs.PredFwd[node] = noEdge
		qs.PredBwd[node] = noEdge
	}
	qs.Touched = qs.Touched[:0]
	qs.FwdPQ.Reset()
	qs.BwdPQ.Reset()
}

func (qs *QueryState) touchFwd(node uint32, dist float64) {
	if math.IsInf(qs.DistFwd[node], 1) && math.IsInf(qs.DistBwd[node], 1) {
		qs.Touched = append(qs.Touched, node)
	}
	qs.DistFwd[node] = dist
}

func (qs *QueryState) touchBwd(node uint32, dist float64) {
	if math.IsInf(qs.DistFwd[node], 1) && math.IsInf(qs.DistBwd[node], 1) {
		qs.Touched = append(qs.Touched, node)
	}
	qs.DistBwd[node] = dist
}
