package metric

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Normalizers holds one non-negative divisor per metric column, typically
// the mean of that metric across all edges, used to bring metrics of very
// different units (meters vs. seconds vs. a workload count) onto comparable
// scales before they're linearly combined.
type Normalizers []float64

// MeanNormalizers computes one normalizer per column as the mean of that
// column across all edges, via gonum/stat.Mean. A zero-mean column (e.g. an
// all-zero workload column before the first balancing pass) gets a
// normalizer of 1 so it doesn't divide by zero.
func MeanNormalizers(columns [][]float64) Normalizers {
	norm := make(Normalizers, len(columns))
	for i, col := range columns {
		if len(col) == 0 {
			norm[i] = 1
			continue
		}
		m := stat.Mean(col, nil)
		if m == 0 {
			m = 1
		}
		norm[i] = m
	}
	return norm
}

// Alphas is a non-negative per-metric weight vector scalarizing the edge
// cost vector: cost(e) = sum_m alpha[m] * metric[e][m] / normalizer[m].
type Alphas []float64

// Validate checks alphas are finite and non-negative, per spec.md §4.2's
// "Negative or non-finite alpha/metric -> hard error at query entry."
func (a Alphas) Validate() error {
	for i, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("metric: alpha[%d] is not finite", i)
		}
		if v < 0 {
			return fmt.Errorf("metric: alpha[%d]=%f is negative", i, v)
		}
	}
	return nil
}

// Scalarize computes the scalar cost of one edge's metric vector under the
// given alphas and normalizers.
func Scalarize(edgeMetrics Vector, alphas Alphas, norm Normalizers) float64 {
	var cost float64
	for m, v := range edgeMetrics {
		cost += alphas[m] * v / norm[m]
	}
	return cost
}

// DotCost scalarizes a whole cost vector (used by the explorator, which
// works with accumulated path cost vectors rather than single edges).
func DotCost(costVector []float64, alphas Alphas, norm Normalizers) float64 {
	return Scalarize(Vector(costVector), alphas, norm)
}
