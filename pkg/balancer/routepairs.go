package balancer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/azybler/mvroute/pkg/dispatch"
	"github.com/azybler/mvroute/pkg/graph"
)

// ParseRoutePairs reads a route-pairs file of `src_id dst_id multiplicity`
// lines (spec.md §4.4 step 2), resolving each external id through store,
// and returns dispatch.RoutePair values ready for dispatch.Run. Comments
// (`#`) and blank lines are skipped, matching pkg/fmi's convention.
func ParseRoutePairs(r io.Reader, store *graph.Store) ([]dispatch.RoutePair, error) {
	sc := bufio.NewScanner(r)
	var pairs []dispatch.RoutePair
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("balancer: route-pairs line %d: want 3 fields, got %d", lineNo, len(fields))
		}
		srcExt, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("balancer: route-pairs line %d: src id %q: %w", lineNo, fields[0], err)
		}
		dstExt, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("balancer: route-pairs line %d: dst id %q: %w", lineNo, fields[1], err)
		}
		mult, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("balancer: route-pairs line %d: multiplicity %q: %w", lineNo, fields[2], err)
		}

		src, err := store.IndexOf(srcExt)
		if err != nil {
			return nil, fmt.Errorf("balancer: route-pairs line %d: %w", lineNo, err)
		}
		dst, err := store.IndexOf(dstExt)
		if err != nil {
			return nil, fmt.Errorf("balancer: route-pairs line %d: %w", lineNo, err)
		}

		pairs = append(pairs, dispatch.RoutePair{Src: src, Dst: dst, Multiplicity: mult})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("balancer: reading route-pairs: %w", err)
	}
	return pairs, nil
}
