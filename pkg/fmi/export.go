package fmi

import (
	"bufio"
	"fmt"
	"io"

	"github.com/azybler/mvroute/pkg/graph"
)

// WriteEdgesCSV writes one row per physical (non-shortcut) edge: src id,
// dst id, then one column per schema metric by id — a plain-text dump for
// external inspection (writing.network.edges), distinct from Write's
// round-trippable format which also carries shortcuts and node coordinates.
func WriteEdgesCSV(w io.Writer, s *graph.Store) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "src_id,dst_id")
	for _, c := range s.Schema.Columns {
		fmt.Fprintf(bw, ",%s", c.ID)
	}
	fmt.Fprintln(bw)

	for e := uint32(0); e < s.NumEdges(); e++ {
		if s.IsShortcut(e) {
			continue
		}
		edge := s.Edge(e)
		srcExt := s.Node(edge.Src).ExternalID
		dstExt := s.Node(edge.Dst).ExternalID
		fmt.Fprintf(bw, "%d,%d", srcExt, dstExt)
		for _, v := range edge.Metrics {
			fmt.Fprintf(bw, ",%g", v)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}
