package graph

// Node is immutable after Finalize. ExternalID is stable across runs (e.g.
// an OSM node id); Index is the dense internal index in [0, N) assigned at
// finalization.
type Node struct {
	ExternalID uint64
	Index      uint32
	Lat        float64
	Lon        float64
	// Level is the contraction-hierarchy level assigned by the external CH
	// builder. NoLevel means the graph hasn't been through CH preprocessing
	// yet (iteration 0, or a non-CH graph) and the kernel must degrade to
	// unidirectional search.
	Level int32
	// Height is an optional CH metric (max level of any node the external
	// builder's witness search touched while contracting this node). Carried
	// through for parity with the FMI-text format; unused by the kernel.
	Height int32
}

// NoLevel marks a node whose level is unset.
const NoLevel int32 = -1
