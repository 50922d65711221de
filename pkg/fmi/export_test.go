package fmi

import (
	"strings"
	"testing"

	"github.com/azybler/mvroute/pkg/graph"
	"github.com/azybler/mvroute/pkg/metric"
)

func buildExportStore(t *testing.T) *graph.Store {
	t.Helper()
	schema, err := metric.NewSchema([]metric.Column{
		{ID: "distance", Kind: metric.KindParsed, Combine: metric.CombineSum},
		{ID: "duration", Kind: metric.KindParsed, Combine: metric.CombineSum},
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
	if err := b.AddEdge(graph.EdgeRecord{SrcExternalID: 1, DstExternalID: 2, Metrics: []float64{5, 1}, Child0: graph.NoChild, Child1: graph.NoChild}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := b.AddEdge(graph.EdgeRecord{SrcExternalID: 2, DstExternalID: 3, Metrics: []float64{7, 2}, Child0: graph.NoChild, Child1: graph.NoChild}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := b.AddEdge(graph.EdgeRecord{SrcExternalID: 1, DstExternalID: 3, Metrics: []float64{12, 3}, Child0: 0, Child1: 1}); err != nil {
		t.Fatalf("AddEdge (shortcut): %v", err)
	}
	store, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return store
}

func TestWriteEdgesCSVSkipsShortcuts(t *testing.T) {
	store := buildExportStore(t)

	var buf strings.Builder
	if err := WriteEdgesCSV(&buf, store); err != nil {
		t.Fatalf("WriteEdgesCSV: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[0] != "src_id,dst_id,distance,duration" {
		t.Fatalf("header = %q, want src_id,dst_id,distance,duration", lines[0])
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines (incl. header), want 3 (header + 2 physical edges)", len(lines))
	}
	for _, l := range lines[1:] {
		if strings.Count(l, ",") != 3 {
			t.Errorf("row %q does not have 4 comma-separated fields", l)
		}
	}
}
