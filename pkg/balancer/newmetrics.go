package balancer

import (
	"bufio"
	"fmt"
	"io"

	"github.com/azybler/mvroute/pkg/graph"
)

// WriteNewMetrics writes one new-metric value per physical (non-shortcut)
// edge, one per line with a "new_metrics" header — the per-iteration stats
// file mirroring io::writing::balancing::new_metrics::Writer in the
// original source.
func WriteNewMetrics(w io.Writer, store *graph.Store, newMetric []float64) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, "new_metrics"); err != nil {
		return fmt.Errorf("balancer: writing new_metrics header: %w", err)
	}
	for e := uint32(0); e < store.NumEdges(); e++ {
		if store.IsShortcut(e) {
			continue
		}
		if _, err := fmt.Fprintln(bw, newMetric[e]); err != nil {
			return fmt.Errorf("balancer: writing new_metrics row %d: %w", e, err)
		}
	}
	return bw.Flush()
}
