package explorator

import (
	"gonum.org/v1/gonum/mat"
)

// Facet is a candidate lower-convex-hull facet: the indices (into the
// caller's point slice) of the M points that define it, and its outward
// normal. For M=2 a Facet is a hull edge; for M>=3 it is an (M-1)-simplex.
type Facet struct {
	Points []int
	Normal []float64
}

// enumerateFacetsND enumerates every M-point combination of cost vectors
// and keeps only genuine front facets of the Pareto boundary: the
// hyperplane through the facet has every other point on its non-negative
// side (within tol), and the facet's own outward normal has non-negative
// components — the combinatorial beneath-beyond simplification spec.md
// §4.3 endorses for the small point counts this system runs at query
// time ("P stays small... tens of paths per OD-pair").
func enumerateFacetsND(points [][]float64, tol float64) []*Facet {
	if len(points) == 0 {
		return nil
	}
	m := len(points[0])
	if len(points) < m {
		return nil
	}

	var facets []*Facet
	for _, combo := range combinations(len(points), m) {
		normal, ok := facetNormal(points, combo)
		if !ok {
			continue
		}
		if !allNonNegative(normal, tol) {
			flipped := make([]float64, len(normal))
			for i, v := range normal {
				flipped[i] = -v
			}
			if !allNonNegative(flipped, tol) {
				continue
			}
			normal = flipped
		}
		clampNonNegative(normal)
		if !isFrontFacet(points, combo, normal, tol) {
			continue
		}
		facets = append(facets, &Facet{Points: combo, Normal: normal})
	}
	return facets
}

// facetNormal computes the facet's normal as the 1-D null space of the
// (M-1)xM matrix of edge vectors from the facet's first point to its other
// M-1 points, via SVD: for a full SVD of an (M-1)xM matrix, V's trailing
// column (index M-1) spans the null space.
func facetNormal(points [][]float64, combo []int) ([]float64, bool) {
	m := len(points[0])
	if m == 1 {
		return []float64{1}, true
	}

	base := points[combo[0]]
	rows := m - 1
	data := make([]float64, rows*m)
	for i := 1; i < m; i++ {
		for j := 0; j < m; j++ {
			data[(i-1)*m+j] = points[combo[i]][j] - base[j]
		}
	}

	a := mat.NewDense(rows, m, data)
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return nil, false
	}
	var v mat.Dense
	svd.VTo(&v)

	normal := make([]float64, m)
	for i := 0; i < m; i++ {
		normal[i] = v.At(i, m-1)
	}
	return normal, true
}

// isFrontFacet checks that every point not in the facet lies on the
// non-negative side of the hyperplane through it.
func isFrontFacet(points [][]float64, combo []int, normal []float64, tol float64) bool {
	inCombo := make(map[int]bool, len(combo))
	for _, idx := range combo {
		inCombo[idx] = true
	}
	base := points[combo[0]]
	for i, p := range points {
		if inCombo[i] {
			continue
		}
		if dotDiff(normal, p, base) < -tol {
			return false
		}
	}
	return true
}

func dotDiff(normal, p, base []float64) float64 {
	var sum float64
	for i := range normal {
		sum += normal[i] * (p[i] - base[i])
	}
	return sum
}

func allNonNegative(v []float64, tol float64) bool {
	for _, x := range v {
		if x < -tol {
			return false
		}
	}
	return true
}

func clampNonNegative(v []float64) {
	for i, x := range v {
		if x < 0 {
			v[i] = 0
		}
	}
}

// combinations enumerates every k-subset of [0,n) in ascending order.
func combinations(n, k int) [][]int {
	var out [][]int
	if k <= 0 || k > n {
		return out
	}
	combo := make([]int, 0, k)
	var rec func(start int)
	rec = func(start int) {
		if len(combo) == k {
			c := make([]int, k)
			copy(c, combo)
			out = append(out, c)
			return
		}
		for i := start; i < n; i++ {
			combo = append(combo, i)
			rec(i + 1)
			combo = combo[:len(combo)-1]
		}
	}
	rec(0)
	return out
}

// LowerHullFacets dispatches to the 2-D monotone-chain hull or the
// combinatorial N-D facet enumeration depending on the cost space's
// dimension.
func LowerHullFacets(points [][]float64, tol float64) []*Facet {
	if len(points) == 0 {
		return nil
	}
	if len(points[0]) == 2 {
		return lowerHullFacets2D(points)
	}
	return enumerateFacetsND(points, tol)
}
