package graph

import "testing"

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)

	for i := range uint32(5) {
		if uf.Find(i) != i {
			t.Errorf("Find(%d) = %d, want %d", i, uf.Find(i), i)
		}
	}

	uf.Union(0, 1)
	if uf.Find(0) != uf.Find(1) {
		t.Error("0 and 1 should be in same set")
	}

	uf.Union(2, 3)
	if uf.Find(2) != uf.Find(3) {
		t.Error("2 and 3 should be in same set")
	}

	if uf.Find(0) == uf.Find(2) {
		t.Error("0 and 2 should be in different sets")
	}

	uf.Union(1, 3)
	if uf.Find(0) != uf.Find(3) {
		t.Error("0 and 3 should now be in same set")
	}
}

func buildComponentFixture(t *testing.T) *Store {
	t.Helper()
	b, err := NewBuilder(testSchema(t))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	for _, id := range []uint64{10, 20, 30, 40, 50} {
		b.AddNode(NodeRecord{ExternalID: id, Level: NoLevel})
	}
	// Component 1: 10 <-> 20 <-> 30 (3 nodes).
	mustAddEdge(t, b, 10, 20, 100)
	mustAddEdge(t, b, 20, 10, 100)
	mustAddEdge(t, b, 20, 30, 200)
	mustAddEdge(t, b, 30, 20, 200)
	// Component 2: 40 <-> 50 (2 nodes).
	mustAddEdge(t, b, 40, 50, 300)
	mustAddEdge(t, b, 50, 40, 300)

	g, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return g
}

func TestLargestComponent(t *testing.T) {
	g := buildComponentFixture(t)
	nodes := LargestComponent(g)
	if len(nodes) != 3 {
		t.Fatalf("LargestComponent has %d nodes, want 3", len(nodes))
	}
}

func TestFilterToComponent(t *testing.T) {
	g := buildComponentFixture(t)
	nodes := LargestComponent(g)

	filtered, err := FilterToComponent(g, nodes)
	if err != nil {
		t.Fatalf("FilterToComponent: %v", err)
	}

	if filtered.NumNodes() != 3 {
		t.Fatalf("filtered NumNodes = %d, want 3", filtered.NumNodes())
	}
	if filtered.NumEdges() != 4 {
		t.Fatalf("filtered NumEdges = %d, want 4", filtered.NumEdges())
	}

	n := filtered.NumNodes()
	for i := uint32(1); i <= n; i++ {
		if filtered.FwdOffset[i] < filtered.FwdOffset[i-1] {
			t.Errorf("FwdOffset not monotonic at %d", i)
		}
	}
	if filtered.FwdOffset[n] != filtered.NumEdges() {
		t.Error("FwdOffset[NumNodes] != NumEdges")
	}
	for i, e := range filtered.Edges {
		if e.Dst >= n {
			t.Errorf("edge %d has Dst=%d >= NumNodes=%d", i, e.Dst, n)
		}
	}

	var total float64
	for _, e := range filtered.Edges {
		total += e.Metrics[0]
	}
	if total != 600 {
		t.Errorf("total distance = %v, want 600", total)
	}
}

func TestFilterToComponentEmptyGraph(t *testing.T) {
	b, err := NewBuilder(testSchema(t))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	g, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	nodes := LargestComponent(g)
	if nodes != nil {
		t.Errorf("expected nil for empty graph, got %v", nodes)
	}

	filtered, err := FilterToComponent(g, nil)
	if err != nil {
		t.Fatalf("FilterToComponent: %v", err)
	}
	if filtered.NumNodes() != 0 || filtered.NumEdges() != 0 {
		t.Errorf("expected empty graph, got %d nodes, %d edges", filtered.NumNodes(), filtered.NumEdges())
	}
}
