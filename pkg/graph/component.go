package graph

// UnionFind implements a disjoint-set data structure with path halving and
// union by rank. Carried over unchanged from the teacher — this part of the
// design is domain-agnostic and needed as-is for largest-component
// extraction during preprocessing.
type UnionFind struct {
	parent []uint32
	rank   []byte // byte is sufficient — max rank ~30 for realistic graphs
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already the
// same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// LargestComponent returns the node indices belonging to the largest weakly
// connected component (treating the directed graph as undirected), using
// only the forward view.
func LargestComponent(s *Store) []uint32 {
	n := s.NumNodes()
	if n == 0 {
		return nil
	}

	uf := NewUnionFind(n)

	for u := uint32(0); u < n; u++ {
		start, end := s.FwdOffset[u], s.FwdOffset[u+1]
		for e := start; e < end; e++ {
			uf.Union(u, s.Edges[e].Dst)
		}
	}

	bestRoot := uint32(0)
	bestSize := uint32(0)
	for i := uint32(0); i < n; i++ {
		root := uf.Find(i)
		if uf.size[root] > bestSize {
			bestRoot = root
			bestSize = uf.size[root]
		}
	}

	nodes := make([]uint32, 0, bestSize)
	for i := uint32(0); i < n; i++ {
		if uf.Find(i) == bestRoot {
			nodes = append(nodes, i)
		}
	}

	return nodes
}

// FilterToComponent builds a fresh Store containing only the given node
// indices and the edges whose endpoints both survive, re-finalizing through
// a Builder so all invariants (dense indices, sorted views, shortcut
// validity) hold on the filtered result. Every shortcut edge is dropped,
// including one whose endpoints both survive — component filtering runs
// before any CH preprocessing, so no edge should yet be a shortcut in practice.
func FilterToComponent(s *Store, keep []uint32) (*Store, error) {
	b, err := NewBuilder(s.Schema)
	if err != nil {
		return nil, err
	}

	keepSet := make(map[uint32]bool, len(keep))
	for _, idx := range keep {
		keepSet[idx] = true
	}

	for _, idx := range keep {
		n := s.Nodes[idx]
		b.AddNode(NodeRecord{
			ExternalID: n.ExternalID,
			Lat:        n.Lat,
			Lon:        n.Lon,
			Level:      n.Level,
			Height:     n.Height,
		})
	}

	for _, oldU := range keep {
		start, end := s.FwdOffset[oldU], s.FwdOffset[oldU+1]
		for e := start; e < end; e++ {
			edge := s.Edges[e]
			if !keepSet[edge.Dst] {
				continue
			}
			if edge.IsShortcut() {
				continue // dropped: shortcut may span outside the component
			}
			if err := b.AddEdge(EdgeRecord{
				SrcExternalID: s.Nodes[edge.Src].ExternalID,
				DstExternalID: s.Nodes[edge.Dst].ExternalID,
				Metrics:       edge.Metrics,
				Child0:        NoChild,
				Child1:        NoChild,
			}); err != nil {
				return nil, err
			}
		}
	}

	return b.Finalize()
}
