package graph

import (
	"testing"

	"github.com/azybler/mvroute/pkg/metric"
)

func testSchema(t *testing.T) *metric.Schema {
	t.Helper()
	s, err := metric.NewSchema([]metric.Column{
		{ID: "distance", Unit: "meters", Kind: metric.KindParsed, Combine: metric.CombineSum},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func TestBuildSimpleGraph(t *testing.T) {
	// Triangle graph: 100 -> 200 -> 300 -> 100.
	b, err := NewBuilder(testSchema(t))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	b.AddNode(NodeRecord{ExternalID: 100, Lat: 1.0, Lon: 103.0, Level: NoLevel})
	b.AddNode(NodeRecord{ExternalID: 200, Lat: 1.1, Lon: 103.0, Level: NoLevel})
	b.AddNode(NodeRecord{ExternalID: 300, Lat: 1.0, Lon: 103.1, Level: NoLevel})
	mustAddEdge(t, b, 100, 200, 1000)
	mustAddEdge(t, b, 200, 300, 2000)
	mustAddEdge(t, b, 300, 100, 3000)

	g, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if g.NumNodes() != 3 {
		t.Fatalf("NumNodes = %d, want 3", g.NumNodes())
	}
	if g.NumEdges() != 3 {
		t.Fatalf("NumEdges = %d, want 3", g.NumEdges())
	}

	for i := uint32(0); i < g.NumNodes(); i++ {
		start, end := g.ForwardRange(i)
		if end-start != 1 {
			t.Errorf("node %d has %d forward edges, want 1", i, end-start)
		}
	}

	var total float64
	for _, e := range g.Edges {
		total += e.Metrics[0]
	}
	if total != 6000 {
		t.Errorf("total distance = %v, want 6000", total)
	}
}

func TestBuildEmptyGraph(t *testing.T) {
	b, err := NewBuilder(testSchema(t))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	g, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if g.NumNodes() != 0 {
		t.Errorf("NumNodes = %d, want 0", g.NumNodes())
	}
	if g.NumEdges() != 0 {
		t.Errorf("NumEdges = %d, want 0", g.NumEdges())
	}
}

func TestBuildBidirectionalEdges(t *testing.T) {
	b, err := NewBuilder(testSchema(t))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	b.AddNode(NodeRecord{ExternalID: 1, Lat: 1.0, Lon: 103.0, Level: NoLevel})
	b.AddNode(NodeRecord{ExternalID: 2, Lat: 1.1, Lon: 103.1, Level: NoLevel})
	mustAddEdge(t, b, 1, 2, 500)
	mustAddEdge(t, b, 2, 1, 500)

	g, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if g.NumNodes() != 2 {
		t.Fatalf("NumNodes = %d, want 2", g.NumNodes())
	}
	if g.NumEdges() != 2 {
		t.Fatalf("NumEdges = %d, want 2", g.NumEdges())
	}
	for i := uint32(0); i < g.NumNodes(); i++ {
		start, end := g.ForwardRange(i)
		if end-start != 1 {
			t.Errorf("node %d has %d forward edges, want 1", i, end-start)
		}
	}
}

func TestBuildCSRInvariants(t *testing.T) {
	// Star graph: 10 -> 20, 10 -> 30, 10 -> 40, 20 -> 10.
	b, err := NewBuilder(testSchema(t))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	b.AddNode(NodeRecord{ExternalID: 10, Lat: 1.0, Lon: 103.0, Level: NoLevel})
	b.AddNode(NodeRecord{ExternalID: 20, Lat: 1.1, Lon: 103.1, Level: NoLevel})
	b.AddNode(NodeRecord{ExternalID: 30, Lat: 1.2, Lon: 103.2, Level: NoLevel})
	b.AddNode(NodeRecord{ExternalID: 40, Lat: 1.3, Lon: 103.3, Level: NoLevel})
	mustAddEdge(t, b, 10, 20, 100)
	mustAddEdge(t, b, 10, 30, 200)
	mustAddEdge(t, b, 10, 40, 300)
	mustAddEdge(t, b, 20, 10, 100)

	g, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if g.NumNodes() != 4 {
		t.Fatalf("NumNodes = %d, want 4", g.NumNodes())
	}
	if g.NumEdges() != 4 {
		t.Fatalf("NumEdges = %d, want 4", g.NumEdges())
	}

	n := g.NumNodes()
	for i := uint32(1); i <= n; i++ {
		if g.FwdOffset[i] < g.FwdOffset[i-1] {
			t.Errorf("FwdOffset[%d]=%d < FwdOffset[%d]=%d, not monotonic", i, g.FwdOffset[i], i-1, g.FwdOffset[i-1])
		}
	}
	if g.FwdOffset[n] != g.NumEdges() {
		t.Errorf("FwdOffset[%d]=%d != NumEdges=%d", n, g.FwdOffset[n], g.NumEdges())
	}
	for i, e := range g.Edges {
		if e.Dst >= n {
			t.Errorf("edge %d has Dst=%d >= NumNodes=%d", i, e.Dst, n)
		}
	}
}

func TestBuilderRejectsDuplicateNode(t *testing.T) {
	b, err := NewBuilder(testSchema(t))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	b.AddNode(NodeRecord{ExternalID: 1, Level: NoLevel})
	b.AddNode(NodeRecord{ExternalID: 1, Level: NoLevel})
	if _, err := b.Finalize(); err == nil {
		t.Fatal("expected error for duplicate external id")
	}
}

func TestBuilderRejectsWrongMetricWidth(t *testing.T) {
	b, err := NewBuilder(testSchema(t))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	err = b.AddEdge(EdgeRecord{
		SrcExternalID: 1, DstExternalID: 2,
		Metrics: []float64{1, 2},
		Child0:  NoChild, Child1: NoChild,
	})
	if err == nil {
		t.Fatal("expected error for wrong metric vector width")
	}
}

func mustAddEdge(t *testing.T, b *Builder, src, dst uint64, dist float64) {
	t.Helper()
	if err := b.AddEdge(EdgeRecord{
		SrcExternalID: src, DstExternalID: dst,
		Metrics: []float64{dist},
		Child0:  NoChild, Child1: NoChild,
	}); err != nil {
		t.Fatalf("AddEdge(%d->%d): %v", src, dst, err)
	}
}
