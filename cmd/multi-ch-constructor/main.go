// Command multi-ch-constructor contracts a multi-metric FMI-text graph
// into a CH-augmented FMI-text graph, either as a one-off invocation
// ("build", the shape pkg/chbuild shells out to between balancing
// iterations) or driven by a standalone config file ("run", for scripting
// outside the balancing loop).
package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/azybler/mvroute/pkg/ch"
	"github.com/azybler/mvroute/pkg/fmi"
	"github.com/azybler/mvroute/pkg/graph"
	"github.com/azybler/mvroute/pkg/logging"
	"github.com/azybler/mvroute/pkg/metric"
)

// runConfig is the standalone config file's shape for the "run" subcommand.
type runConfig struct {
	FMIGraph   string `yaml:"fmi_graph"`
	CHFMIGraph string `yaml:"ch_fmi_graph"`
	Dim        int    `yaml:"dim"`
	CostAcc    float64 `yaml:"cost_accuracy"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: multi-ch-constructor <run|build> [flags]")
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		runSubcommand(os.Args[2:])
	case "build":
		buildSubcommand(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q; want \"run\" or \"build\"\n", os.Args[1])
		os.Exit(2)
	}
}

func runSubcommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to the constructor's YAML config")
	logLevel := fs.String("log", "info", "log level: debug, info, warn, error")
	fs.Parse(args)

	logger := logging.New(logging.ParseLevel(*logLevel))
	if *cfgPath == "" {
		logger.Fatalf("run: --config is required")
	}

	data, err := os.ReadFile(*cfgPath)
	if err != nil {
		logger.Fatalf("reading config %s: %v", *cfgPath, err)
	}
	var cfg runConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Fatalf("parsing config %s: %v", *cfgPath, err)
	}
	if cfg.Dim <= 0 {
		logger.Fatalf("run: config's dim must be positive, got %d", cfg.Dim)
	}

	contract(logger, cfg.FMIGraph, cfg.CHFMIGraph, cfg.Dim, cfg.CostAcc)
}

func buildSubcommand(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	dim := fs.Int("dim", 0, "metric schema dimension")
	acc := fs.Float64("acc", 1, "priority-recompute accuracy in (0,1]")
	in := fs.String("in", "", "input FMI-text graph path")
	out := fs.String("out", "", "output CH-augmented FMI-text graph path")
	logLevel := fs.String("log", "info", "log level: debug, info, warn, error")
	fs.Parse(args)

	logger := logging.New(logging.ParseLevel(*logLevel))
	if *dim <= 0 {
		logger.Fatalf("build: --dim must be positive, got %d", *dim)
	}
	if *in == "" || *out == "" {
		logger.Fatalf("build: --in and --out are both required")
	}

	contract(logger, *in, *out, *dim, *acc)
}

func contract(logger *logging.Logger, inPath, outPath string, dim int, acc float64) {
	f, err := os.Open(inPath)
	if err != nil {
		logger.Fatalf("opening %s: %v", inPath, err)
	}
	parsed, err := fmi.Parse(f, dim)
	f.Close()
	if err != nil {
		logger.Fatalf("parsing %s: %v", inPath, err)
	}
	logger.Infof("parsed %d nodes, %d edges from %s", len(parsed.Nodes), len(parsed.Edges), inPath)

	schema, err := uniformSchema(dim)
	if err != nil {
		logger.Fatalf("building schema: %v", err)
	}

	outNodes, outEdges, err := ch.Contract(parsed.Nodes, parsed.Edges, schema, acc)
	if err != nil {
		logger.Fatalf("contracting: %v", err)
	}

	b, err := graph.NewBuilder(schema)
	if err != nil {
		logger.Fatalf("building output graph: %v", err)
	}
	for _, n := range outNodes {
		b.AddNode(n)
	}
	for _, e := range outEdges {
		if err := b.AddEdge(e); err != nil {
			logger.Fatalf("building output graph: %v", err)
		}
	}
	store, err := b.Finalize()
	if err != nil {
		logger.Fatalf("finalizing output graph: %v", err)
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		logger.Fatalf("creating %s: %v", outPath, err)
	}
	defer outFile.Close()
	if err := fmi.Write(outFile, store); err != nil {
		logger.Fatalf("writing %s: %v", outPath, err)
	}
	logger.Infof("wrote CH-augmented graph (%d nodes, %d edges) to %s", store.NumNodes(), store.NumEdges(), outPath)
}

// uniformSchema builds a dim-wide schema of additive, parsed-kind columns.
// The constructor only needs column count and combine rule to contract —
// metric identifiers and provenance are the parsing layer's concern, not
// this standalone tool's, since it only ever sees FMI-text (already
// resolved metrics) as input.
func uniformSchema(dim int) (*metric.Schema, error) {
	columns := make([]metric.Column, dim)
	for i := range columns {
		columns[i] = metric.Column{ID: fmt.Sprintf("metric_%d", i), Kind: metric.KindParsed, Combine: metric.CombineSum}
	}
	return metric.NewSchema(columns)
}
