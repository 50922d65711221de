// Package fmi reads and writes the FMI-text graph format (spec.md §6): a
// plain-text interchange format the external CH constructor and the
// balancing loop's per-iteration graph files both use, as an alternative
// to the binary Store format pkg/graph/binary.go reads/writes directly.
//
// Header lines declare node count N and edge count E. Then N node lines:
// `external_id index lat lon elevation level`. Then E edge lines:
// `src_id dst_id metric_1 ... metric_M [shortcut_child_0 shortcut_child_1]`.
// Comments begin with `#` and blank lines are skipped anywhere.
package fmi

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/azybler/mvroute/pkg/graph"
	"github.com/azybler/mvroute/pkg/metric"
)

// Graph is the parsed, not-yet-finalized contents of an FMI-text file: the
// raw node/edge records ready to feed a graph.Builder.
type Graph struct {
	Nodes []graph.NodeRecord
	Edges []graph.EdgeRecord
	Dim   int
}

// Parse reads an FMI-text stream into a Graph. dim is the expected metric
// count; edge lines with a different metric count are a hard parse error
// (spec.md §7's "pre-validated metric tuples" — the parser itself, not the
// builder, owns line-level syntax and arity checks).
func Parse(r io.Reader, dim int) (*Graph, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var header []string
	for len(header) < 2 && sc.Scan() {
		line := stripComment(sc.Text())
		if line == "" {
			continue
		}
		header = append(header, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("fmi: reading header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("fmi: missing node/edge count header")
	}

	numNodes, err := strconv.ParseUint(header[0], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("fmi: invalid node count %q: %w", header[0], err)
	}
	numEdges, err := strconv.ParseUint(header[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("fmi: invalid edge count %q: %w", header[1], err)
	}

	g := &Graph{
		Nodes: make([]graph.NodeRecord, 0, numNodes),
		Edges: make([]graph.EdgeRecord, 0, numEdges),
		Dim:   dim,
	}

	for uint64(len(g.Nodes)) < numNodes {
		if !sc.Scan() {
			return nil, fmt.Errorf("fmi: expected %d node lines, got %d", numNodes, len(g.Nodes))
		}
		line := stripComment(sc.Text())
		if line == "" {
			continue
		}
		n, err := parseNodeLine(line)
		if err != nil {
			return nil, err
		}
		g.Nodes = append(g.Nodes, n)
	}

	for uint64(len(g.Edges)) < numEdges {
		if !sc.Scan() {
			return nil, fmt.Errorf("fmi: expected %d edge lines, got %d", numEdges, len(g.Edges))
		}
		line := stripComment(sc.Text())
		if line == "" {
			continue
		}
		e, err := parseEdgeLine(line, dim)
		if err != nil {
			return nil, err
		}
		g.Edges = append(g.Edges, e)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("fmi: reading body: %w", err)
	}
	return g, nil
}

func parseNodeLine(line string) (graph.NodeRecord, error) {
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return graph.NodeRecord{}, fmt.Errorf("fmi: node line %q has %d fields, want 6", line, len(fields))
	}
	extID, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return graph.NodeRecord{}, fmt.Errorf("fmi: node external id %q: %w", fields[0], err)
	}
	// fields[1] is the node's declared index, which the builder reassigns
	// during Finalize (spec.md §4.1's dense index assignment); it is read
	// here only to validate the line shape, not carried forward.
	lat, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return graph.NodeRecord{}, fmt.Errorf("fmi: node lat %q: %w", fields[2], err)
	}
	lon, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return graph.NodeRecord{}, fmt.Errorf("fmi: node lon %q: %w", fields[3], err)
	}
	height, err := strconv.ParseInt(fields[4], 10, 32)
	if err != nil {
		return graph.NodeRecord{}, fmt.Errorf("fmi: node elevation %q: %w", fields[4], err)
	}
	level, err := strconv.ParseInt(fields[5], 10, 32)
	if err != nil {
		return graph.NodeRecord{}, fmt.Errorf("fmi: node level %q: %w", fields[5], err)
	}

	return graph.NodeRecord{
		ExternalID: extID,
		Lat:        lat,
		Lon:        lon,
		Level:      int32(level),
		Height:     int32(height),
	}, nil
}

func parseEdgeLine(line string, dim int) (graph.EdgeRecord, error) {
	fields := strings.Fields(line)
	if len(fields) != 2+dim && len(fields) != 4+dim {
		return graph.EdgeRecord{}, fmt.Errorf("fmi: edge line %q has %d fields, want %d or %d", line, len(fields), 2+dim, 4+dim)
	}
	src, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return graph.EdgeRecord{}, fmt.Errorf("fmi: edge src id %q: %w", fields[0], err)
	}
	dst, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return graph.EdgeRecord{}, fmt.Errorf("fmi: edge dst id %q: %w", fields[1], err)
	}

	metrics := make([]float64, dim)
	for i := 0; i < dim; i++ {
		v, err := strconv.ParseFloat(fields[2+i], 64)
		if err != nil {
			return graph.EdgeRecord{}, fmt.Errorf("fmi: edge metric %d %q: %w", i, fields[2+i], err)
		}
		metrics[i] = v
	}

	child0, child1 := graph.NoChild, graph.NoChild
	if len(fields) == 4+dim {
		c0, err := strconv.ParseInt(fields[2+dim], 10, 32)
		if err != nil {
			return graph.EdgeRecord{}, fmt.Errorf("fmi: edge shortcut child0 %q: %w", fields[2+dim], err)
		}
		c1, err := strconv.ParseInt(fields[3+dim], 10, 32)
		if err != nil {
			return graph.EdgeRecord{}, fmt.Errorf("fmi: edge shortcut child1 %q: %w", fields[3+dim], err)
		}
		child0, child1 = int32(c0), int32(c1)
	}

	return graph.EdgeRecord{
		SrcExternalID: src,
		DstExternalID: dst,
		Metrics:       metrics,
		Child0:        child0,
		Child1:        child1,
	}, nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// Write serializes a finalized Store back to FMI-text, for handing off to
// the external CH builder or persisting an intermediate balancing
// iteration's graph (spec.md §4.4 step 7).
func Write(w io.Writer, s *graph.Store) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "%d\n%d\n", s.NumNodes(), s.NumEdges()); err != nil {
		return fmt.Errorf("fmi: writing header: %w", err)
	}

	for i := uint32(0); i < s.NumNodes(); i++ {
		n := s.Node(i)
		if _, err := fmt.Fprintf(bw, "%d %d %g %g %d %d\n",
			n.ExternalID, i, n.Lat, n.Lon, n.Height, n.Level); err != nil {
			return fmt.Errorf("fmi: writing node %d: %w", i, err)
		}
	}

	for e := uint32(0); e < s.NumEdges(); e++ {
		edge := s.Edge(e)
		srcExt := s.Node(edge.Src).ExternalID
		dstExt := s.Node(edge.Dst).ExternalID

		var b strings.Builder
		fmt.Fprintf(&b, "%d %d", srcExt, dstExt)
		for _, m := range edge.Metrics {
			fmt.Fprintf(&b, " %s", strconv.FormatFloat(m, 'g', -1, 64))
		}
		if edge.IsShortcut() {
			fmt.Fprintf(&b, " %d %d", edge.Child0, edge.Child1)
		}
		if _, err := fmt.Fprintln(bw, b.String()); err != nil {
			return fmt.Errorf("fmi: writing edge %d: %w", e, err)
		}
	}

	return bw.Flush()
}

// SchemaFromColumns is a convenience for callers that already know the
// column list (from YAML config) and just need an fmi.Parse-compatible
// dimension without constructing a full metric.Schema.
func SchemaFromColumns(columns []metric.Column) int {
	return len(columns)
}
