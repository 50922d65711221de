package graph

import (
	"fmt"
	"sort"

	"github.com/azybler/mvroute/pkg/metric"
)

// NodeRecord is one unordered input node, as produced by any external
// parser (FMI-text, PBF, or a test fixture).
type NodeRecord struct {
	ExternalID uint64
	Lat, Lon   float64
	Level      int32 // NoLevel if absent
	Height     int32
}

// EdgeRecord is one unordered input edge. Metrics must already be
// dimensioned to the schema (structural assembly is the builder's job, not
// metric-schema validation, which happens once up front via NewBuilder).
type EdgeRecord struct {
	SrcExternalID uint64
	DstExternalID uint64
	Metrics       []float64
	// Child0/Child1 mark this edge as a CH shortcut of two underlying
	// edges, addressed by *their own position in the edge-record stream*
	// (not yet a finalized edge index — Finalize resolves this).
	Child0, Child1 int32
}

// Builder accumulates unordered node/edge records and produces an immutable
// Store via Finalize. Finalize performs, in order: (i) node dedup by
// external id, (ii) dense index assignment (sort by level descending, then
// external id ascending), (iii) edge src/dst rewrite from external id to
// index, (iv) generated metric computation, (v) forward/backward view
// construction — the five steps of spec.md §4.1. Steps (i) and (ii) share
// one method, (iii) and (iv) have one method each, and (v) is the buildViews
// function.
type Builder struct {
	schema *metric.Schema
	nodes  []NodeRecord
	edges  []EdgeRecord
}

// NewBuilder creates a Builder bound to a fixed metric schema.
func NewBuilder(schema *metric.Schema) (*Builder, error) {
	if schema == nil || schema.Dim() == 0 {
		return nil, fmt.Errorf("graph: builder requires a non-empty metric schema")
	}
	return &Builder{schema: schema}, nil
}

// AddNode stages a node record.
func (b *Builder) AddNode(n NodeRecord) {
	b.nodes = append(b.nodes, n)
}

// AddEdge stages an edge record.
func (b *Builder) AddEdge(e EdgeRecord) error {
	if len(e.Metrics) != b.schema.Dim() {
		return fmt.Errorf("graph: edge metric count %d != schema dim %d", len(e.Metrics), b.schema.Dim())
	}
	b.edges = append(b.edges, e)
	return nil
}

// Finalize runs the five-step build pipeline and produces an immutable
// Store, or a fatal error.
func (b *Builder) Finalize() (*Store, error) {
	order, err := b.dedupeAndOrderNodes()
	if err != nil {
		return nil, err
	}

	extToIdx := make(map[uint64]uint32, len(order))
	finalNodes := make([]Node, len(order))
	for idx, recIdx := range order {
		rec := b.nodes[recIdx]
		finalNodes[idx] = Node{
			ExternalID: rec.ExternalID,
			Index:      uint32(idx),
			Lat:        rec.Lat,
			Lon:        rec.Lon,
			Level:      rec.Level,
			Height:     rec.Height,
		}
		extToIdx[rec.ExternalID] = uint32(idx)
	}

	finalEdges, err := b.rewriteEdges(extToIdx)
	if err != nil {
		return nil, err
	}

	if err := b.computeGenerated(finalNodes, finalEdges); err != nil {
		return nil, err
	}

	if err := validateNonNegative(finalEdges); err != nil {
		return nil, err
	}

	store := &Store{
		Schema:       b.schema,
		Nodes:        finalNodes,
		extIDToIndex: extToIdx,
	}
	buildViews(store, finalEdges)
	return store, nil
}

// dedupeAndOrderNodes deduplicates by external id (a fatal error if any id
// repeats) and returns the record indices in finalized order: level
// descending, then external id ascending.
func (b *Builder) dedupeAndOrderNodes() ([]int, error) {
	seen := make(map[uint64]bool, len(b.nodes))
	for i, n := range b.nodes {
		if seen[n.ExternalID] {
			return nil, fmt.Errorf("graph: duplicate node external id %d (record %d)", n.ExternalID, i)
		}
		seen[n.ExternalID] = true
	}

	order := make([]int, len(b.nodes))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		ni, nj := b.nodes[order[i]], b.nodes[order[j]]
		if ni.Level != nj.Level {
			return ni.Level > nj.Level // descending
		}
		return ni.ExternalID < nj.ExternalID // ascending
	})
	return order, nil
}

// rewriteEdges resolves each edge's src/dst external ids to internal
// indices and validates the shortcut two-hop invariant from spec.md §3.
func (b *Builder) rewriteEdges(extToIdx map[uint64]uint32) ([]Edge, error) {
	out := make([]Edge, len(b.edges))
	for i, e := range b.edges {
		src, ok := extToIdx[e.SrcExternalID]
		if !ok {
			return nil, fmt.Errorf("graph: edge %d references unknown source node %d", i, e.SrcExternalID)
		}
		dst, ok := extToIdx[e.DstExternalID]
		if !ok {
			return nil, fmt.Errorf("graph: edge %d references unknown destination node %d", i, e.DstExternalID)
		}
		metrics := make([]float64, len(e.Metrics))
		copy(metrics, e.Metrics)
		out[i] = Edge{
			Src:     src,
			Dst:     dst,
			Metrics: metrics,
			Child0:  e.Child0,
			Child1:  e.Child1,
		}
	}

	for i, e := range out {
		if !e.IsShortcut() {
			continue
		}
		if int(e.Child0) >= len(out) || int(e.Child1) >= len(out) {
			return nil, fmt.Errorf("graph: edge %d has out-of-range shortcut children", i)
		}
		c0, c1 := out[e.Child0], out[e.Child1]
		if c0.Src != e.Src || c0.Dst != c1.Src || c1.Dst != e.Dst {
			return nil, fmt.Errorf("graph: edge %d's shortcut children do not form a two-hop path %d->?->%d", i, e.Src, e.Dst)
		}
	}
	return out, nil
}

// computeGenerated fills in KindGenerated columns using each column's
// Producer, per spec.md §3's "(b) generated at build time" rule.
func (b *Builder) computeGenerated(nodes []Node, edges []Edge) error {
	for m, col := range b.schema.Columns {
		if col.Kind != metric.KindGenerated {
			continue
		}
		if col.Producer == nil {
			return fmt.Errorf("graph: generated metric %q has no producer", col.ID)
		}
		for i := range edges {
			e := &edges[i]
			src, dst := nodes[e.Src], nodes[e.Dst]
			e.Metrics[m] = col.Producer.Produce(e.Metrics, src.Lat, src.Lon, dst.Lat, dst.Lon)
		}
	}
	return nil
}

func validateNonNegative(edges []Edge) error {
	for i, e := range edges {
		if !metric.Vector(e.Metrics).Valid() {
			return fmt.Errorf("graph: edge %d has a negative or non-finite metric", i)
		}
	}
	return nil
}

// buildViews sorts edges into forward order (level desc, src asc, dst asc),
// builds FwdOffset by counting + prefix sum (the same technique as a plain
// CSR build, generalized from a single weight column to a metric vector),
// then builds the backward permutation + offsets the same way.
func buildViews(s *Store, edges []Edge) {
	n := uint32(len(s.Nodes))

	order := make([]int, len(edges))
	for i := range order {
		order[i] = i
	}
	levelOf := func(nodeIdx uint32) int32 { return s.Nodes[nodeIdx].Level }
	sort.Slice(order, func(i, j int) bool {
		a, b := edges[order[i]], edges[order[j]]
		la, lb := levelOf(a.Src), levelOf(b.Src)
		if la != lb {
			return la > lb
		}
		if a.Src != b.Src {
			return a.Src < b.Src
		}
		return a.Dst < b.Dst
	})

	fwdEdges := make([]Edge, len(edges))
	// remap of old edge-record index -> new forward-sorted index, needed to
	// translate shortcut Child0/Child1 references.
	oldToNew := make([]uint32, len(edges))
	for newIdx, oldIdx := range order {
		fwdEdges[newIdx] = edges[oldIdx]
		oldToNew[oldIdx] = uint32(newIdx)
	}
	for i := range fwdEdges {
		e := &fwdEdges[i]
		if e.IsShortcut() {
			e.Child0 = int32(oldToNew[e.Child0])
			e.Child1 = int32(oldToNew[e.Child1])
		}
	}
	s.Edges = fwdEdges

	fwdOffset := make([]uint32, n+1)
	for _, e := range fwdEdges {
		fwdOffset[e.Src+1]++
	}
	for i := uint32(1); i <= n; i++ {
		fwdOffset[i] += fwdOffset[i-1]
	}
	s.FwdOffset = fwdOffset

	numEdges := uint32(len(fwdEdges))
	bwdOrder := make([]uint32, numEdges)
	for i := range bwdOrder {
		bwdOrder[i] = uint32(i)
	}
	sort.Slice(bwdOrder, func(i, j int) bool {
		a, b := fwdEdges[bwdOrder[i]], fwdEdges[bwdOrder[j]]
		if a.Dst != b.Dst {
			return a.Dst < b.Dst
		}
		return a.Src < b.Src
	})
	s.BwdOrder = bwdOrder

	bwdOffset := make([]uint32, n+1)
	for _, ei := range bwdOrder {
		bwdOffset[fwdEdges[ei].Dst+1]++
	}
	for i := uint32(1); i <= n; i++ {
		bwdOffset[i] += bwdOffset[i-1]
	}
	s.BwdOffset = bwdOffset
}
