// Package graph holds the finalized, immutable-after-build routing graph:
// node/edge records, a compressed forward/backward adjacency (CSR-style),
// CH levels, and shortcut metadata. The graph is read-only during routing;
// views are borrow-scoped handles whose lifetime is bounded by the Store's
// lifetime (spec.md §9's "cyclic ownership" design note) — they take a
// *Store reference at each call rather than holding a back-pointer.
package graph

import (
	"fmt"

	"github.com/azybler/mvroute/pkg/metric"
)

// Store is the finalized, compressed routing graph. Edges is sorted by
// (src level descending, src index ascending, dst index ascending) so that
// FwdOffset — indexed directly by node index, same as a standard CSR
// adjacency — bounds each node's forward out-edges, while also grouping
// edges from same-level nodes together in memory for the CH forward search.
// BwdOrder is a permutation of edge indices into Edges, sorted by (dst
// index, src index), with its own offset array for the backward view.
type Store struct {
	Schema *metric.Schema
	Nodes  []Node // indexed by internal index
	Edges  []Edge // forward-sorted order

	FwdOffset []uint32 // len N+1

	BwdOrder  []uint32 // len E, permutation of edge indices
	BwdOffset []uint32 // len N+1

	extIDToIndex map[uint64]uint32
}

// NumNodes returns N.
func (s *Store) NumNodes() uint32 { return uint32(len(s.Nodes)) }

// NumEdges returns E.
func (s *Store) NumEdges() uint32 { return uint32(len(s.Edges)) }

// IndexOf resolves an external node id to its internal index.
func (s *Store) IndexOf(externalID uint64) (uint32, error) {
	idx, ok := s.extIDToIndex[externalID]
	if !ok {
		return 0, fmt.Errorf("graph: unknown external node id %d", externalID)
	}
	return idx, nil
}

// Node returns the node record at the given internal index.
func (s *Store) Node(idx uint32) Node { return s.Nodes[idx] }

// Level returns the CH level of a node, or NoLevel if unset.
func (s *Store) Level(idx uint32) int32 { return s.Nodes[idx].Level }

// HasLevels reports whether CH preprocessing has assigned distinct levels
// to this graph. When false, every forward/backward edge looks "upward" (or
// none do), and the kernel degrades to unidirectional Dijkstra per
// spec.md §4.2.
func (s *Store) HasLevels() bool {
	if len(s.Nodes) == 0 {
		return false
	}
	first := s.Nodes[0].Level
	if first == NoLevel {
		return false
	}
	for _, n := range s.Nodes[1:] {
		if n.Level != first {
			return true
		}
	}
	return false
}

// ForwardEdges returns the edge indices of node u's forward out-edges.
func (s *Store) ForwardEdges(u uint32) []uint32 {
	start, end := s.FwdOffset[u], s.FwdOffset[u+1]
	out := make([]uint32, end-start)
	for i := range out {
		out[i] = start + uint32(i)
	}
	return out
}

// ForwardRange returns the [start, end) edge-index bounds of node u's
// forward out-edges, avoiding an allocation for hot-path callers.
func (s *Store) ForwardRange(u uint32) (start, end uint32) {
	return s.FwdOffset[u], s.FwdOffset[u+1]
}

// BackwardRange returns the [start, end) bounds into BwdOrder for node u's
// backward out-edges (edges v->u in the original graph, reached from u).
func (s *Store) BackwardRange(u uint32) (start, end uint32) {
	return s.BwdOffset[u], s.BwdOffset[u+1]
}

// Edge returns the edge record at the given edge index.
func (s *Store) Edge(e uint32) Edge { return s.Edges[e] }

// IsShortcut reports whether edge e is a CH shortcut.
func (s *Store) IsShortcut(e uint32) bool { return s.Edges[e].IsShortcut() }

// ShortcutChildren returns the two child edge indices of a shortcut edge.
func (s *Store) ShortcutChildren(e uint32) (c0, c1 uint32) {
	ed := s.Edges[e]
	return uint32(ed.Child0), uint32(ed.Child1)
}

// Metric returns metric[e][m].
func (s *Store) Metric(e uint32, m int) float64 {
	return s.Edges[e].Metrics[m]
}

// IsUpward reports whether edge e runs from a lower- to an equal-or-higher
// level node — the CH forward-search eligibility test from spec.md §4.2.
func (s *Store) IsUpward(e uint32) bool {
	ed := s.Edges[e]
	return s.Nodes[ed.Src].Level <= s.Nodes[ed.Dst].Level
}
