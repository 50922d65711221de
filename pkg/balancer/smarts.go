package balancer

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/azybler/mvroute/pkg/graph"
)

// smartsDocument mirrors the original source's io::smarts::Writer output
// shape: one <edge> element per physical (non-shortcut) edge carrying its
// workload counter, for feeding the SMARTS traffic simulator.
type smartsDocument struct {
	XMLName xml.Name     `xml:"network"`
	Edges   []smartsEdge `xml:"edge"`
}

type smartsEdge struct {
	From     uint64  `xml:"from,attr"`
	To       uint64  `xml:"to,attr"`
	Workload float64 `xml:"workload,attr"`
}

// WriteSMARTS writes the optional SMARTS XML export named in spec.md §6
// ("Outputs"), gated by the caller on Config.WriteSMARTS (balancing.write_smarts)
// — mirroring io::smarts::Writer in the original source, which emits one
// edge element per physical edge with its current workload counter.
func WriteSMARTS(w io.Writer, store *graph.Store, counters []float64) error {
	doc := smartsDocument{}
	for e := uint32(0); e < store.NumEdges(); e++ {
		if store.IsShortcut(e) {
			continue
		}
		edge := store.Edge(e)
		doc.Edges = append(doc.Edges, smartsEdge{
			From:     store.Node(edge.Src).ExternalID,
			To:       store.Node(edge.Dst).ExternalID,
			Workload: counters[e],
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("balancer: writing SMARTS header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("balancer: encoding SMARTS document: %w", err)
	}
	return nil
}
