// Package cmd provides CLI command implementations for roadnet.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/Benny93/roadnet-go/internal/config"
	"github.com/Benny93/roadnet-go/internal/geom"
	"github.com/Benny93/roadnet-go/internal/graph"
	"github.com/Benny93/roadnet-go/internal/pipeline"
	"github.com/Benny93/roadnet-go/internal/storage"
	"github.com/Benny93/roadnet-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// DefaultDB is where networks are stored unless --db says otherwise.
const DefaultDB = ".roadnet/badger"

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	bold   = color.New(color.Bold)
)

// Globals are the flags shared by every command.
type Globals struct {
	DB      string `default:".roadnet/badger" type:"path" help:"Path of the network store"`
	Verbose bool   `short:"v" help:"Enable verbose output"`
	Quiet   bool   `short:"q" help:"Suppress non-essential output"`

	// Out receives command output. Nil means stdout.
	Out io.Writer `kong:"-"`
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// GenerateCmd traces a scene into a road network and stores it.
type GenerateCmd struct {
	Scene string `short:"s" type:"existingfile" help:"Scene file (JSON); the baseline city when omitted"`
	Seed  int64  `help:"Override the scene seed (0 keeps it)"`
	Name  string `short:"n" default:"city" help:"Name to store the network under"`
	JSON  bool   `name:"json" help:"Print the run summary as JSON"`
}

// Run executes the generate command.
func (c *GenerateCmd) Run(g *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()

	scene, err := loadScene(c.Scene)
	if err != nil {
		return err
	}
	if c.Seed != 0 {
		scene.Seed = c.Seed
	}

	store, err := openStore(g.DB, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var progress pipeline.ProgressCallback
	if !g.Quiet && !c.JSON {
		progress = func(phase string, pct float64) {
			fmt.Fprintf(os.Stderr, "\r\033[K%s (%.0f%%)", phase, pct*100)
		}
	}

	_, result, err := pipeline.RunPipeline(ctx, scene, store, c.Name, progress)
	if progress != nil {
		fmt.Fprintln(os.Stderr) // Newline after progress
	}
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	out := g.out()
	if c.JSON {
		return writeJSON(out, result)
	}

	green.Fprintf(out, "✓ Generated %s\n", c.Name)
	printResult(out, result)
	fmt.Fprintf(out, "  Duration:       %.2fs\n", result.DurationSecs)
	return nil
}

// ShowCmd prints a stored network.
type ShowCmd struct {
	Name string `arg:"" help:"Network name"`
	JSON bool   `name:"json" help:"Print the full network as JSON"`
}

// Run executes the show command.
func (c *ShowCmd) Run(g *Globals) error {
	n, err := loadNetwork(g.DB, c.Name)
	if err != nil {
		return err
	}

	out := g.out()
	if c.JSON {
		return writeJSON(out, n)
	}

	bold.Fprintf(out, "%s\n", n.Name)
	fmt.Fprintf(out, "  Created:        %s\n", n.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  Seed:           %d\n", n.Scene.Seed)
	printResult(out, pipeline.Summarize(n))

	fmt.Fprintf(out, "\n  Rejected:       %d\n", n.Stats.Rejected)
	fmt.Fprintf(out, "  Seed attempts:  %d\n", n.Stats.SeedAttempts)
	fmt.Fprintf(out, "  Joins:          %d\n", n.Stats.Joins)

	if len(n.Districts) > 1 {
		fmt.Fprintln(out, "\nDistricts:")
		for _, d := range n.Districts {
			fmt.Fprintf(out, "  %d. %d nodes, %d edges, length %.1f\n", d.ID, len(d.Nodes), d.Edges, d.Length)
		}
	}
	return nil
}

// ListCmd lists stored networks.
type ListCmd struct{}

// Run executes the list command.
func (c *ListCmd) Run(g *Globals) error {
	store, err := openStore(g.DB, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summaries, err := store.List(context.Background())
	if err != nil {
		return fmt.Errorf("listing networks: %w", err)
	}

	out := g.out()
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No networks stored")
		return nil
	}

	fmt.Fprintln(out, "Stored networks:")
	for _, s := range summaries {
		fmt.Fprintf(out, "\n  %s\n", s.Name)
		fmt.Fprintf(out, "    Streamlines: %d\n", s.Streamlines)
		fmt.Fprintf(out, "    Nodes:       %d\n", s.Nodes)
		fmt.Fprintf(out, "    Edges:       %d\n", s.Edges)
		fmt.Fprintf(out, "    Length:      %.1f\n", s.Length)
		fmt.Fprintf(out, "    Created:     %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// RouteCmd finds the shortest route between two nodes.
type RouteCmd struct {
	Name string `arg:"" help:"Network name"`
	From int    `arg:"" help:"Start node"`
	To   int    `arg:"" help:"End node"`
}

// Run executes the route command.
func (c *RouteCmd) Run(g *Globals) error {
	n, err := loadNetwork(g.DB, c.Name)
	if err != nil {
		return err
	}

	route, err := pipeline.ShortestRoute(n.Graph, graph.NodeID(c.From), graph.NodeID(c.To))
	if err != nil {
		return err
	}

	out := g.out()
	fmt.Fprintf(out, "Route %d -> %d: length %.2f over %d edges\n", c.From, c.To, route.Length, len(route.Edges))
	for _, id := range route.Nodes {
		p := n.Graph.Node(id).Position
		fmt.Fprintf(out, "  node %-6d (%.1f, %.1f)\n", id, p.X, p.Y)
	}
	return nil
}

// LotsCmd lists the blocks enclosed by roads.
type LotsCmd struct {
	Name  string `arg:"" help:"Network name"`
	Limit int    `short:"n" default:"20" help:"Maximum lots to list (0 lists all)"`
}

// Run executes the lots command.
func (c *LotsCmd) Run(g *Globals) error {
	n, err := loadNetwork(g.DB, c.Name)
	if err != nil {
		return err
	}

	out := g.out()
	if len(n.Lots) == 0 {
		fmt.Fprintln(out, "No lots found")
		return nil
	}

	fmt.Fprintf(out, "%d lots\n", len(n.Lots))
	for i, lot := range n.Lots {
		if c.Limit > 0 && i >= c.Limit {
			yellow.Fprintf(out, "  ... and %d more\n", len(n.Lots)-c.Limit)
			break
		}
		center := lot.Centroid()
		fmt.Fprintf(out, "  %d. area %.1f, perimeter %.1f, %d sides, centre (%.1f, %.1f)\n",
			lot.ID, lot.Area, lot.Perimeter(), len(lot.Boundary), center.X, center.Y)
	}
	return nil
}

// ExportCmd writes the road polylines of a network to a JSON file.
type ExportCmd struct {
	Name      string  `arg:"" help:"Network name"`
	Out       string  `short:"o" required:"" type:"path" help:"Output file"`
	Clearance float64 `default:"0" help:"Pull road ends back by this distance at junctions"`
}

// ExportedRoad is one edge in the export file.
type ExportedRoad struct {
	Edge   graph.EdgeID `json:"edge"`
	From   graph.NodeID `json:"from"`
	To     graph.NodeID `json:"to"`
	Major  bool         `json:"major"`
	Points []geom.Vec2  `json:"points"`
}

// Export is the export file document.
type Export struct {
	Name  string         `json:"name"`
	World geom.Rect      `json:"world"`
	Roads []ExportedRoad `json:"roads"`
}

// Run executes the export command.
func (c *ExportCmd) Run(g *Globals) error {
	if c.Clearance < 0 {
		return fmt.Errorf("clearance %v must not be negative", c.Clearance)
	}

	n, err := loadNetwork(g.DB, c.Name)
	if err != nil {
		return err
	}

	doc := Export{Name: n.Name, World: n.Scene.World.Rect(), Roads: []ExportedRoad{}}
	skipped := 0
	for _, e := range n.Graph.Edges() {
		points := graph.TrimEdge(e, c.Clearance, n.Graph.Degree(e.From), n.Graph.Degree(e.To))
		if points == nil {
			skipped++
			continue
		}
		doc.Roads = append(doc.Roads, ExportedRoad{Edge: e.ID, From: e.From, To: e.To, Major: e.Major, Points: points})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	if err := os.WriteFile(c.Out, data, 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	out := g.out()
	green.Fprintf(out, "✓ Exported %d roads to %s\n", len(doc.Roads), c.Out)
	if skipped > 0 {
		yellow.Fprintf(out, "  %d roads shorter than twice the clearance were left out\n", skipped)
	}
	return nil
}

// WatchCmd regenerates a network whenever its scene file changes.
type WatchCmd struct {
	Scene string `arg:"" type:"existingfile" help:"Scene file to watch"`
	Name  string `short:"n" default:"city" help:"Name to store the network under"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(g *Globals) error {
	store, err := openStore(g.DB, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	out := g.out()
	fmt.Fprintf(out, "Watching %s for changes (Ctrl+C to stop)\n", c.Scene)

	err = pipeline.WatchScene(ctx, c.Scene, store, c.Name, func(_ *pipeline.Network, res *pipeline.PipelineResult, err error) {
		if err != nil {
			yellow.Fprintf(out, "✗ %v\n", err)
			return
		}
		green.Fprintf(out, "✓ Regenerated %s: %d streamlines, %d nodes, %d edges (%.2fs)\n",
			c.Name, res.Streamlines, res.Nodes, res.Edges, res.DurationSecs)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Fprintln(out, "Watch mode stopped.")
	return nil
}

// MCPCmd starts the MCP server.
type MCPCmd struct{}

// Run executes the mcp command.
func (c *MCPCmd) Run(g *Globals) error {
	store, err := openStore(g.DB, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	server := mcp.NewServer(store)

	// No output to stdout here: it carries JSON-RPC only.
	return server.Run(ctx, os.Stdin, os.Stdout)
}

// CleanCmd deletes one stored network or the whole store.
type CleanCmd struct {
	Name  string `arg:"" optional:"" help:"Network to delete; the whole store when omitted"`
	Force bool   `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(g *Globals) error {
	if _, err := os.Stat(g.DB); os.IsNotExist(err) {
		return fmt.Errorf("no store found at %s. Nothing to clean", g.DB)
	}

	target := g.DB
	if c.Name != "" {
		target = fmt.Sprintf("network %s in %s", c.Name, g.DB)
	}
	if !c.Force {
		fmt.Fprintf(g.out(), "Delete %s? [y/N] ", target)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(g.out(), "Aborted")
			return nil
		}
	}

	if c.Name != "" {
		store, err := openStore(g.DB, false)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		if err := store.Delete(context.Background(), c.Name); err != nil {
			return fmt.Errorf("deleting network: %w", err)
		}
	} else if err := os.RemoveAll(g.DB); err != nil {
		return fmt.Errorf("deleting store: %w", err)
	}

	green.Fprintf(g.out(), "Deleted %s\n", target)
	return nil
}

// Helper functions

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func loadScene(path string) (*config.Scene, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func openStore(dbPath string, readOnly bool) (*storage.BadgerBackend, error) {
	if readOnly {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("no store found at %s. Run 'roadnet generate' first", dbPath)
		}
	} else if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, readOnly); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

func loadNetwork(dbPath, name string) (*pipeline.Network, error) {
	store, err := openStore(dbPath, true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	rec, err := store.Load(context.Background(), name)
	if err != nil {
		return nil, err
	}
	return pipeline.Analyze(rec), nil
}

func printResult(out io.Writer, res *pipeline.PipelineResult) {
	fmt.Fprintf(out, "  Streamlines:    %d\n", res.Streamlines)
	fmt.Fprintf(out, "  Nodes:          %d\n", res.Nodes)
	fmt.Fprintf(out, "  Edges:          %d\n", res.Edges)
	fmt.Fprintf(out, "  Junctions:      %d\n", res.Junctions)
	fmt.Fprintf(out, "  Dead ends:      %d\n", res.DeadEnds)
	fmt.Fprintf(out, "  Districts:      %d\n", res.Districts)
	fmt.Fprintf(out, "  Lots:           %d\n", res.Lots)
	fmt.Fprintf(out, "  Road length:    %.1f\n", res.Length)
	if res.Ambiguities > 0 {
		yellow.Fprintf(out, "  Merged nodes:   %d\n", res.Ambiguities)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// setupLogging installs the default slog logger on stderr.
func setupLogging(verbose, quiet bool) {
	level := slog.LevelInfo
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`

	// Commands
	Generate GenerateCmd `cmd:"" help:"Generate a road network from a scene"`
	Show     ShowCmd     `cmd:"" help:"Show a stored network"`
	List     ListCmd     `cmd:"" help:"List stored networks"`
	Route    RouteCmd    `cmd:"" help:"Find the shortest route between two nodes"`
	Lots     LotsCmd     `cmd:"" help:"List the blocks enclosed by roads"`
	Export   ExportCmd   `cmd:"" help:"Export road polylines as JSON"`
	Watch    WatchCmd    `cmd:"" help:"Regenerate a network whenever its scene changes"`
	MCP      MCPCmd      `cmd:"" help:"Start MCP server (stdio transport)"`
	Clean    CleanCmd    `cmd:"" help:"Delete a stored network or the whole store"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("roadnet"),
		kong.Description("Procedural road network generator driven by tensor fields"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	setupLogging(c.Verbose, c.Quiet)
	return kongCtx.Run(&c.Globals)
}

