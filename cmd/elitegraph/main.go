// Package main provides the elitegraph CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/anonym-g/Chinese-Elite-sub000/pkg/config"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/daterange"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/elog"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/engine"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/eviction"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/graph"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/highlight"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/lifecycle"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/visibility"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

var (
	flagConfig string
	flagWindow string
	flagLimit  int
)

func main() {
	// .env is optional; missing files are fine.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "elitegraph",
		Short: "Temporal relationship-graph visibility engine",
		Long: `elitegraph loads a time-varying relationship graph and answers
visibility queries against it.

Features:
  • Fuzzy date parsing (bare years and year-months expand per usage)
  • Windowed temporal filtering with category toggles and pins
  • Multi-path BFS search with deterministic ordering
  • Frame-budgeted scene reconciliation
  • TTL eviction of lazily streamed nodes`,
	}
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("elitegraph v%s (%s)\n", version, commit)
		},
	})

	inspectCmd := &cobra.Command{
		Use:   "inspect <graph.json>",
		Short: "Load a graph file and report visibility for a window",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().StringVar(&flagWindow, "window", "", "query window, e.g. \"1920 - 1950\" (default: everything)")
	rootCmd.AddCommand(inspectCmd)

	pathsCmd := &cobra.Command{
		Use:   "paths <graph.json> <source> <target>",
		Short: "Search visible routes between two nodes",
		Args:  cobra.ExactArgs(3),
		RunE:  runPaths,
	}
	pathsCmd.Flags().StringVar(&flagWindow, "window", "", "query window, e.g. \"1920 - 1950\"")
	pathsCmd.Flags().IntVar(&flagLimit, "limit", 5, "maximum number of paths")
	rootCmd.AddCommand(pathsCmd)

	watchCmd := &cobra.Command{
		Use:   "watch <graph.json>",
		Short: "Run the full pipeline with the eviction sweep, printing scene changes",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
	watchCmd.Flags().StringVar(&flagWindow, "window", "", "query window, e.g. \"1920 - 1950\"")
	rootCmd.AddCommand(watchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves configuration: YAML file when --config is given,
// else env over defaults.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.LoadFromEnv()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.LogLevel {
	case "debug":
		elog.SetLevel(elog.LevelDebug)
	case "warn":
		elog.SetLevel(elog.LevelWarn)
	case "error":
		elog.SetLevel(elog.LevelError)
	default:
		elog.SetLevel(elog.LevelInfo)
	}
	return cfg, nil
}

// loadGraph parses a dataset file into a working graph and reports what
// was skipped.
func loadGraph(path string) (*graph.Graph, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading dataset: %w", err)
	}
	src, err := graph.ParseSource(data)
	if err != nil {
		return nil, nil, err
	}

	g := graph.New()
	report, err := g.LoadSource(src)
	if err != nil {
		return nil, nil, err
	}
	g.MarkSeeds()

	if len(report.Skipped) > 0 {
		warn := color.New(color.FgYellow)
		for _, s := range report.Skipped {
			warn.Fprintf(os.Stderr, "skipped: %s\n", s)
		}
	}
	return g, data, nil
}

// parseWindow turns the --window flag into a concrete interval. Empty
// means everything.
func parseWindow(s string) (time.Time, time.Time, error) {
	if s == "" {
		return daterange.MinInstant, daterange.MaxInstant, nil
	}
	start, end, ok := daterange.Bounds(s)
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("unparsable window %q", s)
	}
	return start, end, nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	g, _, err := loadGraph(args[0])
	if err != nil {
		return err
	}
	winStart, winEnd, err := parseWindow(flagWindow)
	if err != nil {
		return err
	}

	stats := g.CollectStats()
	bold := color.New(color.Bold)
	bold.Printf("dataset: %s\n", args[0])
	fmt.Printf("  nodes: %d  edges: %d\n", stats.Nodes, stats.Edges)

	cats := make([]graph.Category, 0, len(stats.ByCategory))
	for c := range stats.ByCategory {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	for _, c := range cats {
		fmt.Printf("  %-14s %d\n", c, stats.ByCategory[c])
	}

	snap := visibility.ComputeVisible(g, winStart, winEnd, nil)
	bold.Printf("window %s .. %s\n", winStart.Format("2006-01-02"), winEnd.Format("2006-01-02"))
	green := color.New(color.FgGreen)
	green.Printf("  visible: %d nodes, %d edges\n", len(snap.Nodes), len(snap.Edges))
	return nil
}

func runPaths(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	g, _, err := loadGraph(args[0])
	if err != nil {
		return err
	}
	winStart, winEnd, err := parseWindow(flagWindow)
	if err != nil {
		return err
	}

	// The flag bounds the search itself, not just the printout.
	if flagLimit > 0 {
		cfg.Interaction.PathLimit = flagLimit
	}

	e, q := buildEngine(cfg, g, nil)
	defer q.Close()
	e.SetWindow(winStart, winEnd)

	result := e.FindPaths(graph.NodeID(args[1]), graph.NodeID(args[2]))

	if len(result.Paths) == 0 {
		color.Yellow("no visible route between %s and %s\n", args[1], args[2])
		return nil
	}
	for i, path := range result.Paths {
		fmt.Printf("%d.", i+1)
		for j, id := range path {
			if j > 0 {
				fmt.Print(" -> ")
			}
			color.New(color.FgCyan).Print(string(id))
		}
		fmt.Println()
	}
	if result.Truncated {
		color.Yellow("search budget exhausted; results may be incomplete\n")
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	g, _, err := loadGraph(args[0])
	if err != nil {
		return err
	}
	winStart, winEnd, err := parseWindow(flagWindow)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, q := buildEngine(cfg, g, func(d *visibility.Delta, s *visibility.Snapshot) {
		if d.Empty() {
			return
		}
		fmt.Printf("scene: +%d/-%d nodes, +%d/-%d edges (visible %d/%d)\n",
			len(d.NodesAdded), len(d.NodesRemoved),
			len(d.EdgesAdded), len(d.EdgesRemoved),
			len(s.Nodes), len(s.Edges))
	})
	defer q.Close()

	evictor := eviction.New(eviction.Config{
		Interval: cfg.Eviction.Interval,
		TTL:      cfg.Eviction.TTL,
	}, g, e.ActiveIDs, func(removed []graph.NodeID) {
		elog.Info("evicted", map[string]any{"nodes": len(removed)})
		e.Refresh()
	})

	q.Run(ctx)
	evictor.Start()
	defer evictor.Stop()

	e.SetWindow(winStart, winEnd)
	color.New(color.Bold).Println("watching; Ctrl-C to stop")

	<-ctx.Done()
	return nil
}

// buildEngine assembles the pipeline with a log-printing renderer.
func buildEngine(cfg *config.Config, g *graph.Graph, obs engine.Observer) (*engine.Engine, *lifecycle.Queue) {
	q := lifecycle.NewQueue(lifecycle.Config{
		Budget:        cfg.Lifecycle.FrameBudget,
		FrameInterval: cfg.Lifecycle.FrameInterval,
		FadeDelay:     cfg.Lifecycle.FadeDelay,
		ViewportW:     cfg.Lifecycle.ViewportW,
		ViewportH:     cfg.Lifecycle.ViewportH,
	}, logRenderer{}, g)

	hm := highlight.NewMachine(q.Timers())
	hm.SetDwell(cfg.Interaction.RevealDwell)

	e := engine.New(engine.Options{
		Graph:     g,
		Queue:     q,
		Highlight: hm,
		PathLimit: cfg.Interaction.PathLimit,
	})
	if obs != nil {
		e.AddObserver(obs)
	}
	return e, q
}

// logRenderer narrates scene instructions instead of drawing them.
type logRenderer struct{}

func (logRenderer) CreateNode(n *graph.Node, x, y float64) {
	elog.Debug("create node", map[string]any{"id": n.ID, "x": int(x), "y": int(y)})
}
func (logRenderer) CreateEdge(e *graph.Edge) {
	elog.Debug("create edge", map[string]any{"id": e.ID()})
}
func (logRenderer) FadeNodeLabel(id graph.NodeID) {
	elog.Debug("fade label", map[string]any{"id": id})
}
func (logRenderer) FadeNodeShape(id graph.NodeID) {
	elog.Debug("fade shape", map[string]any{"id": id})
}
func (logRenderer) ReleaseNode(id graph.NodeID) {
	elog.Debug("release node", map[string]any{"id": id})
}
func (logRenderer) ReleaseEdge(id graph.EdgeID) {
	elog.Debug("release edge", map[string]any{"id": id})
}
