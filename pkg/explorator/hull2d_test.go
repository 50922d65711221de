package explorator

import "testing"

func TestLowerHullFacets2D(t *testing.T) {
	// Three non-dominated points forming a genuine trade-off staircase,
	// plus one dominated point (6,6) that must not appear in any facet.
	points := [][]float64{
		{1, 10}, // idx 0
		{6, 6},  // idx 1 (dominated by idx 3, above the lower hull)
		{10, 1}, // idx 2
		{4, 4},  // idx 3
	}
	facets := lowerHullFacets2D(points)
	if len(facets) != 2 {
		t.Fatalf("got %d facets, want 2: %+v", len(facets), facets)
	}
	for _, f := range facets {
		for _, idx := range f.Points {
			if idx == 1 {
				t.Errorf("dominated point 1 appeared in a hull facet: %+v", f)
			}
		}
		if f.Normal[0] < 0 || f.Normal[1] < 0 {
			t.Errorf("facet normal has a negative component: %+v", f.Normal)
		}
	}
}

func TestLowerHullFacetsTwoPoints(t *testing.T) {
	points := [][]float64{{1, 10}, {10, 1}}
	facets := lowerHullFacets2D(points)
	if len(facets) != 1 {
		t.Fatalf("got %d facets, want 1", len(facets))
	}
	if facets[0].Normal[0] <= 0 || facets[0].Normal[1] <= 0 {
		t.Errorf("expected a strictly positive trade-off normal, got %+v", facets[0].Normal)
	}
}
