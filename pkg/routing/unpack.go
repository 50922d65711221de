package routing

import "github.com/azybler/mvroute/pkg/graph"

// Flatten expands a path's shortcut edges into a sequence of non-shortcut
// (physical) edges, preserving order, per spec.md §4.2/§9 ("flatten
// recursively replaces a shortcut by its two children; the recursion must
// be explicit stack or memoized to avoid pathological depth"). Unlike the
// teacher's unpack.go — which has to rediscover a shortcut's children by
// binary-searching the CSR head array for a from/middle/to triple — a
// Store's shortcut edge already carries its two children as direct edge
// indices, so flattening here is a plain explicit-stack walk with no edge
// lookups at all.
func Flatten(store *graph.Store, edges []uint32) []uint32 {
	out := make([]uint32, 0, len(edges))
	for _, e := range edges {
		out = append(out, flattenOne(store, e)...)
	}
	return out
}

type unpackFrame struct {
	edge  uint32
	depth int
}

// flattenOne unfolds a single edge (which may itself be a shortcut of
// shortcuts) into its physical edges, in left-to-right order.
func flattenOne(store *graph.Store, edge uint32) []uint32 {
	var frag []uint32
	stack := []unpackFrame{{edge, 0}}
	// A plain stack pops in LIFO order; pushing child1 before child0
	// guarantees child0 (the left half) is processed first, so frag comes
	// out in left-to-right order despite the LIFO pop.
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if item.depth > maxUnpackDepth {
			continue // safety bound against a malformed shortcut cycle
		}
		if !store.IsShortcut(item.edge) {
			frag = append(frag, item.edge)
			continue
		}
		c0, c1 := store.ShortcutChildren(item.edge)
		stack = append(stack, unpackFrame{c1, item.depth + 1})
		stack = append(stack, unpackFrame{c0, item.depth + 1})
	}
	return frag
}

// maxUnpackDepth bounds shortcut recursion depth; real contraction
// hierarchies never nest anywhere near this deep.
const maxUnpackDepth = 100
