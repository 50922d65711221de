package graph

// NoChild marks a non-shortcut child slot.
const NoChild int32 = -1

// Edge is immutable after Finalize. Src/Dst are internal node indices.
// Metrics is the fixed-width non-negative metric vector (length M, the
// schema's Dim()). Child0/Child1 are the two underlying edge indices this
// edge is a CH shortcut of; both are NoChild for an original (non-shortcut)
// edge.
type Edge struct {
	Src     uint32
	Dst     uint32
	Metrics []float64
	Child0  int32
	Child1  int32
}

// IsShortcut reports whether this edge is a CH shortcut of exactly two
// underlying edges.
func (e Edge) IsShortcut() bool {
	return e.Child0 != NoChild && e.Child1 != NoChild
}
