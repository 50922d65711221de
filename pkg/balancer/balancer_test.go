package balancer

import (
	"context"
	"testing"

	"github.com/azybler/mvroute/pkg/dispatch"
	"github.com/azybler/mvroute/pkg/graph"
	"github.com/azybler/mvroute/pkg/metric"
	"github.com/azybler/mvroute/pkg/routecfg"
)

// buildShortcutStore builds a 3-node, 3-edge graph (1->2, 2->3, and a
// 1->3 shortcut over them) with a 2-column schema, used by both the
// new-metrics/SMARTS writer tests and as a general fixture.
func buildShortcutStore(t *testing.T) *graph.Store {
	t.Helper()
	schema, err := metric.NewSchema([]metric.Column{
		{ID: "distance", Kind: metric.KindParsed, Combine: metric.CombineSum},
		{ID: "workload", Kind: metric.KindWritten, Combine: metric.CombineSum},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	b, err := graph.NewBuilder(schema)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	b.AddNode(graph.NodeRecord{ExternalID: 1, Level: 1})
	b.AddNode(graph.NodeRecord{ExternalID: 2, Level: 0})
	b.AddNode(graph.NodeRecord{ExternalID: 3, Level: 1})
	if err := b.AddEdge(graph.EdgeRecord{SrcExternalID: 1, DstExternalID: 2, Metrics: []float64{1, 0}, Child0: graph.NoChild, Child1: graph.NoChild}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := b.AddEdge(graph.EdgeRecord{SrcExternalID: 2, DstExternalID: 3, Metrics: []float64{1, 0}, Child0: graph.NoChild, Child1: graph.NoChild}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := b.AddEdge(graph.EdgeRecord{SrcExternalID: 1, DstExternalID: 3, Metrics: []float64{2, 0}, Child0: 0, Child1: 1}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	store, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return store
}

func TestResolveShortcutWorkload(t *testing.T) {
	store := buildShortcutStore(t)
	// Finalize sorts edges by source, then destination index: edge 0 is the
	// 1->3 shortcut over {1,2}, edge 1: 1->2, edge 2: 2->3.
	newMetric := []float64{0, 3, 5}
	resolveShortcutWorkload(store, store.Schema, 1, newMetric)

	if newMetric[1] != 3 || newMetric[2] != 5 {
		t.Fatalf("physical edge values should be untouched, got %v", newMetric)
	}
	if want := 8.0; newMetric[0] != want {
		t.Errorf("shortcut workload = %v, want %v (sum of its children)", newMetric[0], want)
	}
}

func TestResolveShortcutWorkloadNested(t *testing.T) {
	// 4-node chain 1->2->3->4 with a shortcut 1->3 over {0,1} and a
	// nested shortcut 1->4 over {shortcut(1->3), 3->4}.
	schema, err := metric.NewSchema([]metric.Column{
		{ID: "distance", Kind: metric.KindParsed, Combine: metric.CombineSum},
		{ID: "workload", Kind: metric.KindWritten, Combine: metric.CombineSum},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	b, err := graph.NewBuilder(schema)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	b.AddNode(graph.NodeRecord{ExternalID: 1, Level: 2})
	b.AddNode(graph.NodeRecord{ExternalID: 2, Level: 0})
	b.AddNode(graph.NodeRecord{ExternalID: 3, Level: 1})
	b.AddNode(graph.NodeRecord{ExternalID: 4, Level: 2})
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	must(b.AddEdge(graph.EdgeRecord{SrcExternalID: 1, DstExternalID: 2, Metrics: []float64{1, 0}, Child0: graph.NoChild, Child1: graph.NoChild})) // 0
	must(b.AddEdge(graph.EdgeRecord{SrcExternalID: 2, DstExternalID: 3, Metrics: []float64{1, 0}, Child0: graph.NoChild, Child1: graph.NoChild})) // 1
	must(b.AddEdge(graph.EdgeRecord{SrcExternalID: 3, DstExternalID: 4, Metrics: []float64{1, 0}, Child0: graph.NoChild, Child1: graph.NoChild})) // 2
	must(b.AddEdge(graph.EdgeRecord{SrcExternalID: 1, DstExternalID: 3, Metrics: []float64{2, 0}, Child0: 0, Child1: 1}))                         // 3: shortcut over {0,1}
	must(b.AddEdge(graph.EdgeRecord{SrcExternalID: 1, DstExternalID: 4, Metrics: []float64{3, 0}, Child0: 3, Child1: 2}))                         // 4: shortcut over {3,2}
	store, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	// Find the finalized indices of the two shortcuts by their metrics[0]
	// (2 and 3), since Finalize may reorder edges.
	var idxOf2Hop, idxOf3Hop uint32
	for e := uint32(0); e < store.NumEdges(); e++ {
		if !store.IsShortcut(e) {
			continue
		}
		switch store.Metric(e, 0) {
		case 2:
			idxOf2Hop = e
		case 3:
			idxOf3Hop = e
		}
	}

	newMetric := make([]float64, store.NumEdges())
	for e := uint32(0); e < store.NumEdges(); e++ {
		if !store.IsShortcut(e) {
			newMetric[e] = store.Metric(e, 0) * 10 // arbitrary per-physical-edge counter-derived value
		}
	}
	resolveShortcutWorkload(store, store.Schema, 1, newMetric)

	if want := 20.0; newMetric[idxOf2Hop] != want {
		t.Errorf("2-hop shortcut workload = %v, want %v", newMetric[idxOf2Hop], want)
	}
	if want := 30.0; newMetric[idxOf3Hop] != want {
		t.Errorf("nested 3-hop shortcut workload = %v, want %v (sum of all physical edges)", newMetric[idxOf3Hop], want)
	}
}

func TestRunIterationsDegradedModeNoExternalBuilder(t *testing.T) {
	schema, err := metric.NewSchema([]metric.Column{
		{ID: "distance", Kind: metric.KindParsed, Combine: metric.CombineSum},
		{ID: "workload", Kind: metric.KindWritten, Combine: metric.CombineSum},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	b, err := graph.NewBuilder(schema)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	b.AddNode(graph.NodeRecord{ExternalID: 1, Level: graph.NoLevel})
	b.AddNode(graph.NodeRecord{ExternalID: 2, Level: graph.NoLevel})
	b.AddNode(graph.NodeRecord{ExternalID: 3, Level: graph.NoLevel})
	if err := b.AddEdge(graph.EdgeRecord{SrcExternalID: 1, DstExternalID: 2, Metrics: []float64{1, 0}, Child0: graph.NoChild, Child1: graph.NoChild}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := b.AddEdge(graph.EdgeRecord{SrcExternalID: 2, DstExternalID: 3, Metrics: []float64{1, 0}, Child0: graph.NoChild, Child1: graph.NoChild}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	store, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	s1, err := store.IndexOf(1)
	if err != nil {
		t.Fatalf("IndexOf(1): %v", err)
	}
	s3, err := store.IndexOf(3)
	if err != nil {
		t.Fatalf("IndexOf(3): %v", err)
	}
	pairs := []dispatch.RoutePair{{Src: s1, Dst: s3, Multiplicity: 4}}

	cfg := Config{
		NumIter:        2,
		Seed:           7,
		Workers:        2,
		WorkloadMetric: 1,
		Update:         UpdateParams{Rule: RuleLinear, Capacity: 4},
		RouteCfg: routecfg.Config{
			Alphas:      metric.Alphas{1, 1},
			Normalizers: metric.Normalizers{1, 1},
			Tolerance:   1e-9,
			Algorithm:   routecfg.AlgorithmExplorating,
		},
		Degenerate: []bool{false, false},
		// ResultsDir and CHBuilderPath left empty: no filesystem writes, no
		// external CH constructor invocation (degraded single-graph mode).
	}

	final, results, err := RunIterations(context.Background(), store, schema, pairs, cfg)
	if err != nil {
		t.Fatalf("RunIterations: %v", err)
	}
	if final == nil {
		t.Fatal("expected a non-nil final graph")
	}
	if len(results) != cfg.NumIter {
		t.Fatalf("got %d iteration results, want %d", len(results), cfg.NumIter)
	}
	for _, r := range results {
		if r.TotalCounter <= 0 {
			t.Errorf("iteration %d total counter = %v, want > 0", r.Iteration, r.TotalCounter)
		}
	}
}
