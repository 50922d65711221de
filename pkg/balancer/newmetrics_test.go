package balancer

import (
	"strings"
	"testing"
)

func TestWriteNewMetricsSkipsShortcuts(t *testing.T) {
	store := buildShortcutStore(t)
	var buf strings.Builder
	newMetric := []float64{99, 1, 2} // index 0 is the shortcut
	if err := WriteNewMetrics(&buf, store, newMetric); err != nil {
		t.Fatalf("WriteNewMetrics: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[0] != "new_metrics" {
		t.Fatalf("missing header, got %q", lines[0])
	}
	if len(lines) != 3 { // header + 2 physical edges
		t.Fatalf("got %d lines, want 3: %v", len(lines), lines)
	}
}

func TestWriteSMARTSSkipsShortcuts(t *testing.T) {
	store := buildShortcutStore(t)
	var buf strings.Builder
	counters := []float64{99, 3, 4} // index 0 is the shortcut
	if err := WriteSMARTS(&buf, store, counters); err != nil {
		t.Fatalf("WriteSMARTS: %v", err)
	}
	out := buf.String()
	if strings.Count(out, "<edge") != 2 {
		t.Errorf("expected 2 <edge> elements, got output:\n%s", out)
	}
}
