// Package config loads the top-level YAML configuration that wires
// cmd/mvroute's pipeline together: which graph to parse and with what
// metric schema, where to write outputs, the routing query parameters, and
// the balancing loop's settings. Grounded on the same gopkg.in/yaml.v3
// decoding style as the rest of the example corpus.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/azybler/mvroute/pkg/balancer"
	"github.com/azybler/mvroute/pkg/metric"
	"github.com/azybler/mvroute/pkg/osm"
	"github.com/azybler/mvroute/pkg/routecfg"
)

// Config is the root of the YAML document.
type Config struct {
	Parsing           ParsingConfig   `yaml:"parsing"`
	Writing           WritingConfig   `yaml:"writing"`
	Routing           RoutingConfig   `yaml:"routing"`
	Balancing         BalancingConfig `yaml:"balancing"`
	EvaluatingBalance struct {
		StatsDir string `yaml:"stats_dir"`
	} `yaml:"evaluating_balance"`
}

// ParsingConfig describes the input graph file and its metric schema.
type ParsingConfig struct {
	Path    string         `yaml:"path"`
	Format  string         `yaml:"format"` // "pbf" or "fmi"
	BBox    *BBoxConfig    `yaml:"bbox"`
	Metrics []MetricConfig `yaml:"metrics"`
}

// BBoxConfig filters OSM ways to a bounding box; unused for "fmi" input.
type BBoxConfig struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLng float64 `yaml:"min_lng"`
	MaxLng float64 `yaml:"max_lng"`
}

// MetricConfig describes one column of the metric schema.
type MetricConfig struct {
	ID       string  `yaml:"id"`
	Unit     string  `yaml:"unit"`
	Kind     string  `yaml:"kind"`    // "parsed", "generated", "written"
	Combine  string  `yaml:"combine"` // "sum", "max" (default "sum")
	Producer string  `yaml:"producer"` // "haversine", "convert", "calc" — only for kind=generated
	Convert  *struct {
		From   string  `yaml:"from"`
		Factor float64 `yaml:"factor"`
	} `yaml:"convert"`
	Calc *struct {
		Op string `yaml:"op"` // "add", "sub", "mul", "div"
		A  string `yaml:"a"`
		B  string `yaml:"b"`
	} `yaml:"calc"`
}

// WritingConfig describes output file paths.
type WritingConfig struct {
	Network struct {
		Graph  string `yaml:"graph"`
		Edges  string `yaml:"edges"`
		Routes string `yaml:"routes"`
	} `yaml:"network"`
}

// RoutingConfig is the per-query routing section: alphas keyed by metric
// id (resolved to index order via a schema by RouteConfig), tolerance,
// algorithm, and the route-pairs workload file for balancing.
type RoutingConfig struct {
	Alphas     map[string]float64 `yaml:"alphas"`
	Tolerance  float64             `yaml:"tolerance"`
	Algorithm  string              `yaml:"algorithm"`
	RoutePairs string              `yaml:"route_pairs"`
}

// UpdateConfig mirrors balancer.UpdateParams with a string rule selector.
type UpdateConfig struct {
	Rule      string  `yaml:"rule"` // "linear", "power", "logistic"
	Capacity  float64 `yaml:"capacity"`
	Exponent  float64 `yaml:"exponent"`
	Midpoint  float64 `yaml:"midpoint"`
	Steepness float64 `yaml:"steepness"`
}

// BalancingConfig is the iterative traffic-balancing section.
type BalancingConfig struct {
	NumIter        int          `yaml:"num_iter"`
	Seed           int64        `yaml:"seed"`
	NumThreads     int          `yaml:"num_threads"`
	WorkloadMetric string       `yaml:"workload_metric"`
	Update         UpdateConfig `yaml:"update"`
	CHBuilderPath  string       `yaml:"ch_builder_path"`
	CHAcc          float64      `yaml:"ch_acc"`
	ResultsDir     string       `yaml:"results_dir"`
	WriteSMARTS    bool         `yaml:"write_smarts"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// BuildSchema resolves ParsingConfig.Metrics into a metric.Schema. Generated
// columns are wired to their Producer by id (a producer referencing an
// unresolved metric id is a config error).
func (c *Config) BuildSchema() (*metric.Schema, error) {
	idx := make(map[string]int, len(c.Parsing.Metrics))
	for i, m := range c.Parsing.Metrics {
		idx[m.ID] = i
	}

	columns := make([]metric.Column, len(c.Parsing.Metrics))
	for i, m := range c.Parsing.Metrics {
		col := metric.Column{ID: m.ID, Unit: m.Unit}
		switch m.Kind {
		case "generated":
			col.Kind = metric.KindGenerated
		case "written":
			col.Kind = metric.KindWritten
		default:
			col.Kind = metric.KindParsed
		}
		switch m.Combine {
		case "max":
			col.Combine = metric.CombineMax
		default:
			col.Combine = metric.CombineSum
		}
		if col.Kind == metric.KindGenerated {
			producer, err := resolveProducer(m, idx)
			if err != nil {
				return nil, err
			}
			col.Producer = producer
		}
		columns[i] = col
	}
	return metric.NewSchema(columns)
}

func resolveProducer(m MetricConfig, idx map[string]int) (metric.Producer, error) {
	switch m.Producer {
	case "haversine":
		return metric.HaversineProducer{}, nil
	case "convert":
		if m.Convert == nil {
			return nil, fmt.Errorf("config: metric %q is kind=generated producer=convert but has no convert section", m.ID)
		}
		fromIdx, ok := idx[m.Convert.From]
		if !ok {
			return nil, fmt.Errorf("config: metric %q's convert.from %q is not a declared metric", m.ID, m.Convert.From)
		}
		return metric.ConvertProducer{FromIdx: fromIdx, Factor: m.Convert.Factor}, nil
	case "calc":
		if m.Calc == nil {
			return nil, fmt.Errorf("config: metric %q is kind=generated producer=calc but has no calc section", m.ID)
		}
		aIdx, ok := idx[m.Calc.A]
		if !ok {
			return nil, fmt.Errorf("config: metric %q's calc.a %q is not a declared metric", m.ID, m.Calc.A)
		}
		bIdx, ok := idx[m.Calc.B]
		if !ok {
			return nil, fmt.Errorf("config: metric %q's calc.b %q is not a declared metric", m.ID, m.Calc.B)
		}
		op, err := parseCalcOp(m.Calc.Op)
		if err != nil {
			return nil, fmt.Errorf("config: metric %q: %w", m.ID, err)
		}
		return metric.CalcProducer{Op: op, AIdx: aIdx, BIdx: bIdx}, nil
	default:
		return nil, fmt.Errorf("config: metric %q is kind=generated but has unknown producer %q", m.ID, m.Producer)
	}
}

func parseCalcOp(op string) (metric.CalcOp, error) {
	switch op {
	case "add":
		return metric.CalcAdd, nil
	case "sub":
		return metric.CalcSub, nil
	case "mul":
		return metric.CalcMul, nil
	case "div":
		return metric.CalcDiv, nil
	default:
		return 0, fmt.Errorf("unknown calc op %q", op)
	}
}

// OSMBBox converts the YAML bbox section to osm.BBox, or the zero value if
// unset.
func (c *Config) OSMBBox() osm.BBox {
	if c.Parsing.BBox == nil {
		return osm.BBox{}
	}
	b := c.Parsing.BBox
	return osm.BBox{MinLat: b.MinLat, MaxLat: b.MaxLat, MinLng: b.MinLng, MaxLng: b.MaxLng}
}

// RouteConfig resolves the routing section's alphas (keyed by metric id)
// into a routecfg.Config ordered by schema. Normalizers are left nil —
// callers compute them from the loaded graph via metric.MeanNormalizers,
// since they depend on runtime data the YAML document doesn't carry.
func (c *Config) RouteConfig(schema *metric.Schema) (routecfg.Config, error) {
	alphas := make(metric.Alphas, schema.Dim())
	for id, v := range c.Routing.Alphas {
		i, err := schema.IndexOf(id)
		if err != nil {
			return routecfg.Config{}, fmt.Errorf("config: routing.alphas: %w", err)
		}
		alphas[i] = v
	}
	var algo routecfg.Algorithm
	switch c.Routing.Algorithm {
	case "explorating":
		algo = routecfg.AlgorithmExplorating
	default:
		algo = routecfg.AlgorithmDijkstra
	}
	return routecfg.Config{
		Alphas:    alphas,
		Tolerance: c.Routing.Tolerance,
		Algorithm: algo,
	}, nil
}

// BalancerConfig resolves the balancing section into a balancer.Config.
// The returned Config's RouteCfg (alphas, normalizers, tolerance, algorithm)
// is routeCfg, which the caller has already resolved and normalizer-filled.
func (c *Config) BalancerConfig(schema *metric.Schema, routeCfg routecfg.Config, degenerate []bool) (balancer.Config, error) {
	workloadIdx, err := schema.IndexOf(c.Balancing.WorkloadMetric)
	if err != nil {
		return balancer.Config{}, fmt.Errorf("config: balancing.workload_metric: %w", err)
	}
	var rule balancer.UpdateRule
	switch c.Balancing.Update.Rule {
	case "power":
		rule = balancer.RulePower
	case "logistic":
		rule = balancer.RuleLogistic
	default:
		rule = balancer.RuleLinear
	}
	return balancer.Config{
		NumIter:        c.Balancing.NumIter,
		Seed:           c.Balancing.Seed,
		Workers:        c.Balancing.NumThreads,
		WorkloadMetric: workloadIdx,
		Update: balancer.UpdateParams{
			Rule:      rule,
			Capacity:  c.Balancing.Update.Capacity,
			Exponent:  c.Balancing.Update.Exponent,
			Midpoint:  c.Balancing.Update.Midpoint,
			Steepness: c.Balancing.Update.Steepness,
		},
		RouteCfg:      routeCfg,
		Degenerate:    degenerate,
		ResultsDir:    c.Balancing.ResultsDir,
		CHBuilderPath: c.Balancing.CHBuilderPath,
		CHAcc:         c.Balancing.CHAcc,
		WriteSMARTS:   c.Balancing.WriteSMARTS,
	}, nil
}
