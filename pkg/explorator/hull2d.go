package explorator

import "sort"

// lowerHullFacets2D computes the lower convex hull of 2-D cost vectors via
// the standard monotone-chain algorithm, then emits one Facet per
// consecutive hull edge. For a genuine Pareto trade-off edge from
// (x1,y1) to (x2,y2) with x2>x1 (so y2<=y1, a biobjective improvement
// trade), the classic weighted-sum facet normal is (y1-y2, x2-x1) — both
// components non-negative by construction, which is exactly the "front
// facet" condition spec.md §4.3 asks for.
func lowerHullFacets2D(points [][]float64) []*Facet {
	type pt struct {
		x, y float64
		idx  int
	}
	pts := make([]pt, len(points))
	for i, p := range points {
		pts[i] = pt{p[0], p[1], i}
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].x != pts[j].x {
			return pts[i].x < pts[j].x
		}
		return pts[i].y < pts[j].y
	})

	cross := func(o, a, b pt) float64 {
		return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
	}

	var lower []pt
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var facets []*Facet
	for i := 0; i+1 < len(lower); i++ {
		a, b := lower[i], lower[i+1]
		normal := []float64{a.y - b.y, b.x - a.x}
		clampNonNegative(normal)
		facets = append(facets, &Facet{Points: []int{a.idx, b.idx}, Normal: normal})
	}
	return facets
}
