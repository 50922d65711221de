// Command mvroute runs the routing engine's full pipeline from a single
// YAML config: parse a graph, optionally persist it, answer a workload of
// routing queries (single-best-path or Pareto exploration), optionally run
// the iterative traffic-balancing loop, and optionally check how close the
// final graph's workload is to balanced.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/azybler/mvroute/pkg/balancer"
	"github.com/azybler/mvroute/pkg/config"
	"github.com/azybler/mvroute/pkg/dispatch"
	"github.com/azybler/mvroute/pkg/explorator"
	"github.com/azybler/mvroute/pkg/fmi"
	"github.com/azybler/mvroute/pkg/graph"
	"github.com/azybler/mvroute/pkg/logging"
	"github.com/azybler/mvroute/pkg/metric"
	"github.com/azybler/mvroute/pkg/osm"
	"github.com/azybler/mvroute/pkg/routecfg"
	"github.com/azybler/mvroute/pkg/routing"
)

type flags struct {
	configPath      string
	writingGraph    bool
	writingEdges    bool
	writingRoutes   bool
	routing         string
	balancing       bool
	checkingBalance bool
	logLevel        string
}

func parseFlags(args []string) *flags {
	fs := flag.NewFlagSet("mvroute", flag.ExitOnError)
	f := &flags{}
	fs.StringVar(&f.configPath, "config", "", "path to the pipeline's YAML config (required)")
	fs.BoolVar(&f.writingGraph, "writing_graph", false, "write the parsed graph to writing.network.graph")
	fs.BoolVar(&f.writingEdges, "writing_edges", false, "write a CSV edge dump to writing.network.edges")
	fs.BoolVar(&f.writingRoutes, "writing_routes", false, "write routing.route_pairs' query results to writing.network.routes")
	fs.StringVar(&f.routing, "routing", "", "run routing queries: \"dijkstra\" or \"explorating\" (overrides routing.algorithm)")
	fs.BoolVar(&f.balancing, "balancing", false, "run the iterative traffic-balancing loop")
	fs.BoolVar(&f.checkingBalance, "checking_balance", false, "report how balanced the final graph's workload is (requires -routing)")
	fs.StringVar(&f.logLevel, "log", "info", "log level: debug, info, warn, error")
	fs.Parse(args)
	return f
}

func main() {
	f := parseFlags(os.Args[1:])
	logger := logging.New(logging.ParseLevel(f.logLevel))

	if f.configPath == "" {
		logger.Fatalf("-config is required")
	}
	if f.checkingBalance && f.routing == "" {
		logger.Fatalf("-checking_balance requires -routing to also be set")
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		logger.Fatalf("loading config: %v", err)
	}

	schema, err := cfg.BuildSchema()
	if err != nil {
		logger.Fatalf("building metric schema: %v", err)
	}

	ctx := context.Background()
	store, err := parseGraph(ctx, cfg, schema, logger)
	if err != nil {
		logger.Fatalf("parsing graph: %v", err)
	}
	logger.Infof("parsed graph: %d nodes, %d edges", store.NumNodes(), store.NumEdges())

	if f.writingGraph && cfg.Writing.Network.Graph != "" {
		if err := writeGraph(cfg.Writing.Network.Graph, store); err != nil {
			logger.Fatalf("writing graph: %v", err)
		}
		logger.Infof("wrote graph to %s", cfg.Writing.Network.Graph)
	}
	if f.writingEdges && cfg.Writing.Network.Edges != "" {
		if err := writeEdgesCSV(cfg.Writing.Network.Edges, store); err != nil {
			logger.Fatalf("writing edges: %v", err)
		}
		logger.Infof("wrote edge dump to %s", cfg.Writing.Network.Edges)
	}

	routeCfg, err := cfg.RouteConfig(schema)
	if err != nil {
		logger.Fatalf("resolving routing config: %v", err)
	}
	if f.routing != "" {
		switch f.routing {
		case "dijkstra":
			routeCfg.Algorithm = routecfg.AlgorithmDijkstra
		case "explorating":
			routeCfg.Algorithm = routecfg.AlgorithmExplorating
		default:
			logger.Fatalf("-routing must be \"dijkstra\" or \"explorating\", got %q", f.routing)
		}
	}

	cols := make([][]float64, schema.Dim())
	for e := uint32(0); e < store.NumEdges(); e++ {
		m := store.Edge(e).Metrics
		for i, v := range m {
			cols[i] = append(cols[i], v)
		}
	}
	routeCfg.Normalizers = metric.MeanNormalizers(cols)

	degenerate := make([]bool, schema.Dim())
	if cfg.Balancing.WorkloadMetric != "" {
		if idx, err := schema.IndexOf(cfg.Balancing.WorkloadMetric); err == nil {
			degenerate[idx] = allZero(cols[idx])
		}
	}

	var pairs []dispatch.RoutePair
	if cfg.Routing.RoutePairs != "" {
		pf, err := os.Open(cfg.Routing.RoutePairs)
		if err != nil {
			logger.Fatalf("opening route pairs: %v", err)
		}
		pairs, err = balancer.ParseRoutePairs(pf, store)
		pf.Close()
		if err != nil {
			logger.Fatalf("parsing route pairs: %v", err)
		}
		logger.Infof("loaded %d route pairs", len(pairs))
	}

	if f.routing != "" && len(pairs) > 0 {
		results, err := runQueries(ctx, store, pairs, routeCfg, degenerate)
		if err != nil {
			logger.Fatalf("running routing queries: %v", err)
		}
		logger.Infof("answered %d routing queries", len(results))
		if f.writingRoutes && cfg.Writing.Network.Routes != "" {
			if err := writeRoutesCSV(cfg.Writing.Network.Routes, results); err != nil {
				logger.Fatalf("writing routes: %v", err)
			}
			logger.Infof("wrote route results to %s", cfg.Writing.Network.Routes)
		}

		if f.checkingBalance {
			reportBalance(logger, store, results, cfg.Balancing.WorkloadMetric, schema)
		}
	}

	if f.balancing {
		if len(pairs) == 0 {
			logger.Fatalf("-balancing requires routing.route_pairs to be set")
		}
		bc, err := cfg.BalancerConfig(schema, routeCfg, degenerate)
		if err != nil {
			logger.Fatalf("resolving balancing config: %v", err)
		}
		final, iterResults, err := balancer.RunIterations(ctx, store, schema, pairs, bc)
		if err != nil {
			logger.Fatalf("running balancing loop: %v", err)
		}
		for _, r := range iterResults {
			logger.Infof("balancing iteration %d: total workload %.2f", r.Iteration, r.TotalCounter)
		}
		logger.Infof("balancing complete: final graph has %d nodes, %d edges", final.NumNodes(), final.NumEdges())
	}
}

// parseGraph dispatches on parsing.format: "fmi" reads the plain-text
// interchange format directly; anything else (including the default,
// empty string) is treated as an OSM PBF extract.
func parseGraph(ctx context.Context, cfg *config.Config, schema *metric.Schema, logger *logging.Logger) (*graph.Store, error) {
	f, err := os.Open(cfg.Parsing.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Parsing.Path, err)
	}
	defer f.Close()

	b, err := graph.NewBuilder(schema)
	if err != nil {
		return nil, err
	}

	switch cfg.Parsing.Format {
	case "fmi":
		parsed, err := fmi.Parse(f, schema.Dim())
		if err != nil {
			return nil, err
		}
		for _, n := range parsed.Nodes {
			b.AddNode(n)
		}
		for _, e := range parsed.Edges {
			if err := b.AddEdge(e); err != nil {
				return nil, err
			}
		}
	default:
		logger.Infof("parsing %s as an OSM PBF extract", cfg.Parsing.Path)
		parsed, err := osm.Parse(ctx, f, osm.ParseOptions{BBox: cfg.OSMBBox(), Dim: schema.Dim()})
		if err != nil {
			return nil, err
		}
		for _, n := range parsed.Nodes {
			b.AddNode(n)
		}
		for _, e := range parsed.Edges {
			if err := b.AddEdge(e); err != nil {
				return nil, err
			}
		}
	}

	return b.Finalize()
}

func writeGraph(path string, store *graph.Store) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return fmi.Write(out, store)
}

func writeEdgesCSV(path string, store *graph.Store) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return fmi.WriteEdgesCSV(out, store)
}

// queryResult pairs one route-pair's input with its answer: for dijkstra
// queries the single best path's cost; for explorating queries every
// Pareto-equivalent path found.
type queryResult struct {
	Src, Dst uint64
	Paths    []explorator.PathResult
}

// runQueries answers every route pair once each, sequentially on the main
// goroutine — the dispatcher (pkg/dispatch) exists for the balancing loop's
// repeated bulk workload, not a single one-shot query report.
func runQueries(ctx context.Context, store *graph.Store, pairs []dispatch.RoutePair, cfg routecfg.Config, degenerate []bool) ([]queryResult, error) {
	kernel := routing.NewKernel(store, cfg.Tolerance)
	ex := explorator.NewExplorator(store, kernel)

	results := make([]queryResult, 0, len(pairs))
	for _, p := range pairs {
		srcExt := store.Node(p.Src).ExternalID
		dstExt := store.Node(p.Dst).ExternalID

		if cfg.Algorithm == routecfg.AlgorithmExplorating {
			paths, err := ex.Explore(ctx, p.Src, p.Dst, cfg, degenerate)
			if err != nil {
				return nil, err
			}
			results = append(results, queryResult{Src: srcExt, Dst: dstExt, Paths: paths})
			continue
		}

		res, err := kernel.Route(ctx, p.Src, p.Dst, cfg)
		if err == routing.ErrNoRoute {
			results = append(results, queryResult{Src: srcExt, Dst: dstExt})
			continue
		}
		if err != nil {
			return nil, err
		}
		flat := routing.Flatten(store, res.Edges)
		results = append(results, queryResult{
			Src: srcExt, Dst: dstExt,
			Paths: []explorator.PathResult{{Edges: flat, Cost: explorator.PathVector(store, flat)}},
		})
	}
	return results, nil
}

func writeRoutesCSV(path string, results []queryResult) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	fmt.Fprintln(out, "src_id,dst_id,path_index,num_edges,cost")
	for _, r := range results {
		if len(r.Paths) == 0 {
			fmt.Fprintf(out, "%d,%d,-1,0,\n", r.Src, r.Dst)
			continue
		}
		for i, p := range r.Paths {
			cost := sumVector(p.Cost)
			fmt.Fprintf(out, "%d,%d,%d,%d,%g\n", r.Src, r.Dst, i, len(p.Edges), cost)
		}
	}
	return nil
}

func sumVector(v metric.Vector) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

func allZero(col []float64) bool {
	for _, v := range col {
		if v != 0 {
			return false
		}
	}
	return true
}

// reportBalance logs one summary line for the workload metric: the mean and
// variance of how many queried best paths use each physical edge — the
// check the original source's CLI left unimplemented (its is_checking_balance
// branch was a literal TODO), filled in here as a plain summary rather than
// left as a gap.
func reportBalance(logger *logging.Logger, store *graph.Store, results []queryResult, workloadMetric string, schema *metric.Schema) {
	if workloadMetric == "" {
		logger.Warnf("checking_balance: no balancing.workload_metric configured, skipping")
		return
	}
	if _, err := schema.IndexOf(workloadMetric); err != nil {
		logger.Warnf("checking_balance: %v", err)
		return
	}

	counts := make([]float64, store.NumEdges())
	var totalQueries int
	for _, r := range results {
		if len(r.Paths) == 0 {
			continue
		}
		totalQueries++
		for _, e := range r.Paths[0].Edges {
			counts[e]++
		}
	}

	var physical int
	var sum, sumSq float64
	for e := uint32(0); e < store.NumEdges(); e++ {
		if store.IsShortcut(e) {
			continue
		}
		physical++
		c := counts[e]
		sum += c
		sumSq += c * c
	}
	if physical == 0 {
		logger.Warnf("checking_balance: graph has no physical edges")
		return
	}
	mean := sum / float64(physical)
	variance := sumSq/float64(physical) - mean*mean
	if variance < 0 {
		variance = 0
	}
	logger.Infof("checking_balance: metric %q over %d queries, %d edges: mean load %.3f, variance %.3f",
		workloadMetric, totalQueries, physical, mean, variance)
}
