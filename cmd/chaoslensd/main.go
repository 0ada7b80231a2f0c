// Command chaoslensd drives the structural code-intelligence pipeline from
// the shell: ingest a tree into C3, keep it live with a watcher, and query
// it for search hits, snippet verification, clusters, chaos rankings, and
// combined risk.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/chaoslens/internal/chaos"
	"github.com/standardbeagle/chaoslens/internal/config"
	"github.com/standardbeagle/chaoslens/internal/debug"
	"github.com/standardbeagle/chaoslens/internal/depgraph"
	"github.com/standardbeagle/chaoslens/internal/ingestion"
	"github.com/standardbeagle/chaoslens/internal/manifold"
	"github.com/standardbeagle/chaoslens/internal/risk"
	"github.com/standardbeagle/chaoslens/internal/store"
	"github.com/standardbeagle/chaoslens/internal/version"
)

var (
	// cfg is populated by the Before hook from the --root flag
	// and is the single source of truth every command reads parameters
	// from, mirroring the teacher's package-level indexer/projectRoot.
	cfg *config.Config
)

// loadConfigWithOverrides loads the KDL config for root and applies the
// --root CLI override, the same shape as the teacher's loadConfigWithOverrides.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
	}
	loaded, err := config.Load(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load config under %s: %w", absRoot, err)
	}
	return loaded, nil
}

// openStore builds the Store a command should run against. "redis" is the
// persistent production backend; "mem" is the throwaway in-process index
// the query commands can use against an ad hoc tree without a Redis
// instance (the throwaway-index MemStore use described in SPEC_FULL.md).
func openStore(c *cli.Context) (store.Store, error) {
	switch c.String("backend") {
	case "mem":
		return store.NewMemStore(), nil
	case "redis", "":
		return store.NewRedisStore(cfg.Store.Addr, cfg.Store.Password, cfg.Store.DB, cfg.Store.KeyPrefix)
	default:
		return nil, fmt.Errorf("unknown backend %q (want redis or mem)", c.String("backend"))
	}
}

// buildCoordinator assembles C4 over st, wired to a fresh dependency graph.
func buildCoordinator(st store.Store) (*ingestion.Coordinator, *depgraph.Graph) {
	extractor := depgraph.NewRegexExtractor()
	graph := depgraph.New(extractor)
	walker := &ingestion.Walker{
		Root:            cfg.Project.Root,
		Exclude:         cfg.Index.Exclude,
		MaxBytesPerFile: cfg.Index.MaxBytesPerFile,
	}
	pipeline := ingestion.NewPipeline(
		manifoldConfig(),
		chaosConfig(),
		cfg.Index.LiteGlobs,
		extractor,
	)
	coordinator := ingestion.New(walker, pipeline, st, graph, cfg.Index)
	return coordinator, graph
}

func manifoldConfig() manifold.Config {
	return manifold.Config{
		WindowBytes: cfg.Encoder.WindowBytes,
		StrideBytes: cfg.Encoder.StrideBytes,
		Precision:   cfg.Encoder.SignaturePrecision,
	}
}

func chaosConfig() chaos.Config {
	return chaos.Config{
		StateWindow:      cfg.Chaos.StateWindow,
		HazardPercentile: cfg.Chaos.HazardPercentile,
		HighThreshold:    cfg.Chaos.HighThreshold,
		HazardCenter:     cfg.Chaos.HazardCenter,
	}
}

func buildRiskComposer(st store.Store, graph *depgraph.Graph) *risk.Composer {
	weights := risk.Weights{Chaos: cfg.Risk.ChaosWeight, Blast: cfg.Risk.BlastWeight, Churn: cfg.Risk.ChurnWeight}
	bands := risk.Bands{Critical: cfg.Risk.BandCritical, High: cfg.Risk.BandHigh, Moderate: cfg.Risk.BandModerate}
	churn := risk.ChurnProvider(risk.ZeroChurnProvider{})
	if cfg.Project.Root != "" {
		churn = risk.NewGitChurnProvider(cfg.Project.Root)
	}
	return risk.New(st, graph, churn, weights, bands, cfg.Risk.BlastCap)
}

func main() {
	app := &cli.App{
		Name:    "chaoslensd",
		Usage:   "Structural code-intelligence server: byte-manifold signatures, chaos analysis, dependency blast radius, and combined risk",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root to index and query",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Store backend: redis (default) or mem",
				Value: "redis",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			ingestCommand,
			watchCommand,
			searchCommand,
			verifyCommand,
			clusterCommand,
			rankCommand,
			riskCommand,
			statusCommand,
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				debug.EnableDebug = "true"
				debug.SetDebugOutput(os.Stderr)
			}
			loaded, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "chaoslensd: %v\n", err)
		os.Exit(1)
	}
}
