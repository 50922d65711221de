package routing

import "math"

// noEdge marks "no predecessor edge" in a QueryState.
const noEdge = ^uint32(0)

// noNode marks "no node" (an unreachable or unset slot).
const noNode = ^uint32(0)

// PQItem is a priority queue entry: a node and its tentative scalarized
// cost.
type PQItem struct {
	Node uint32
	Cost float64
}

// MinHeap is a concrete-typed binary min-heap, generalized from the
// teacher's uint32-distance heap to a float64 cost with a tolerance-based
// tie-break: costs within AbsTol of each other compare equal, and ties are
// broken by node index ascending so repeated runs over the same graph are
// reproducible (spec.md §4.2's priority-queue ordering rule).
type MinHeap struct {
	items  []PQItem
	AbsTol float64
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node uint32, cost float64) {
	h.items = append(h.items, PQItem{node, cost})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) PeekCost() float64 {
	if len(h.items) == 0 {
		return math.Inf(1)
	}
	return h.items[0].Cost
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
}

// less reports whether item i should sit above item j in the heap, using
// the tolerance-based tie-break.
func (h *MinHeap) less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if math.Abs(a.Cost-b.Cost) <= h.AbsTol {
		return a.Node < b.Node
	}
	return a.Cost < b.Cost
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.less(left, smallest) {
			smallest = left
		}
		if right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
