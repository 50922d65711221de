// Package routecfg holds the per-query routing configuration (C4):
// the alpha vector over metrics, the tolerance used by the kernel's
// floating-point comparisons, and the algorithm selector. Config is
// YAML-unmarshalable so an external loader can populate it directly from
// the top-level `routing` config section (out of scope here, see §6).
package routecfg

import (
	"fmt"

	"github.com/azybler/mvroute/pkg/metric"
)

// Algorithm selects between a single best path and Pareto exploration.
type Algorithm string

const (
	AlgorithmDijkstra    Algorithm = "dijkstra"
	AlgorithmExplorating Algorithm = "explorating"
)

// Config is one query's routing configuration.
type Config struct {
	// Alphas is indexed by metric index, not identifier — resolve ids via
	// the schema once at config load time and store the result here.
	Alphas      metric.Alphas      `yaml:"-"`
	Normalizers metric.Normalizers `yaml:"-"`

	// Tolerance is the absolute tolerance the kernel's heap and the
	// explorator's facet-dominance check both use for "equal within
	// tolerance" comparisons.
	Tolerance float64 `yaml:"tolerance"`

	Algorithm Algorithm `yaml:"algorithm"`
}

// Validate checks the config is internally consistent against a schema of
// dimension dim: both vectors are dimensioned for this schema, every alpha
// is finite and non-negative (via metric.Alphas.Validate), the tolerance is
// non-negative, and the algorithm selector is a known value. Normalizer
// values are not range-checked.
func (c Config) Validate(dim int) error {
	if len(c.Alphas) != dim {
		return fmt.Errorf("routecfg: alphas has %d entries, want %d", len(c.Alphas), dim)
	}
	if len(c.Normalizers) != dim {
		return fmt.Errorf("routecfg: normalizers has %d entries, want %d", len(c.Normalizers), dim)
	}
	if err := c.Alphas.Validate(); err != nil {
		return err
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("routecfg: tolerance %v must be non-negative", c.Tolerance)
	}
	switch c.Algorithm {
	case AlgorithmDijkstra, AlgorithmExplorating:
	default:
		return fmt.Errorf("routecfg: unknown algorithm %q", c.Algorithm)
	}
	return nil
}

// WithAlphaZeroed returns a copy of c with the alpha at metric index m
// forced to zero — the balancing loop's iteration-0 rule (spec.md §4.4
// step 3: the new metric's alpha is 0 until the column has been through
// one balancing pass).
func (c Config) WithAlphaZeroed(m int) Config {
	out := c
	out.Alphas = make(metric.Alphas, len(c.Alphas))
	copy(out.Alphas, c.Alphas)
	out.Alphas[m] = 0
	return out
}

// WithAlphas returns a copy of c with its alpha vector replaced — used by
// the explorator to re-run the kernel with alphas chosen from a hull
// facet's normal.
func (c Config) WithAlphas(alphas metric.Alphas) Config {
	out := c
	out.Alphas = alphas
	return out
}
