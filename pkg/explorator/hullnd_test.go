package explorator

import (
	"math"
	"testing"
)

func TestCombinations(t *testing.T) {
	combos := combinations(4, 2)
	want := [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	if len(combos) != len(want) {
		t.Fatalf("got %d combinations, want %d", len(combos), len(want))
	}
	for i, c := range combos {
		for j := range c {
			if c[j] != want[i][j] {
				t.Errorf("combinations()[%d] = %v, want %v", i, c, want[i])
			}
		}
	}
}

func TestEnumerateFacetsND(t *testing.T) {
	// A 3-objective simplex: three corner points plus an interior
	// (dominated) point that must not survive into any facet.
	points := [][]float64{
		{10, 0, 0},
		{0, 10, 0},
		{0, 0, 10},
		{5, 5, 5}, // dominated
	}
	facets := enumerateFacetsND(points, 1e-6)
	if len(facets) == 0 {
		t.Fatal("expected at least one front facet")
	}
	for _, f := range facets {
		for _, idx := range f.Points {
			if idx == 3 {
				t.Errorf("dominated point 3 appeared in a front facet: %+v", f)
			}
		}
		for _, n := range f.Normal {
			if n < -1e-9 {
				t.Errorf("facet normal has a negative component: %v", f.Normal)
			}
		}
	}
}

func TestClampNonNegative(t *testing.T) {
	v := []float64{-1, 0, 2}
	clampNonNegative(v)
	if v[0] != 0 || v[1] != 0 || v[2] != 2 {
		t.Errorf("clampNonNegative(%v) unexpected result", v)
	}
}

func TestLowerHullFacetsDispatch(t *testing.T) {
	points2D := [][]float64{{1, 10}, {10, 1}}
	if got := LowerHullFacets(points2D, 1e-9); len(got) != 1 {
		t.Errorf("2D dispatch: got %d facets, want 1", len(got))
	}

	points3D := [][]float64{{10, 0, 0}, {0, 10, 0}, {0, 0, 10}}
	if got := LowerHullFacets(points3D, 1e-9); len(got) == 0 {
		t.Errorf("3D dispatch: expected at least one facet")
	}

	if got := LowerHullFacets(nil, 1e-9); got != nil {
		t.Errorf("LowerHullFacets(nil) = %v, want nil", got)
	}
}

func TestFacetNormalDegenerateMatrix(t *testing.T) {
	// Two coincident points cannot define a meaningful facet via SVD's
	// null space alone; this just documents that Factorize still succeeds
	// (returns some normal) rather than panicking.
	_, ok := facetNormal([][]float64{{1, 1}, {1, 1}}, []int{0, 1})
	if !ok {
		t.Skip("SVD factorization declined on a degenerate matrix, which is acceptable")
	}
}

var _ = math.Inf
