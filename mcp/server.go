// Package mcp provides the MCP (Model Context Protocol) server for roadnet.
//
// The server runs on the MCP go-sdk over a stdio transport and exposes
// generation and the network queries as tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/roadnet-go/internal/config"
	"github.com/Benny93/roadnet-go/internal/graph"
	"github.com/Benny93/roadnet-go/internal/pipeline"
	"github.com/Benny93/roadnet-go/internal/storage"
	"github.com/Benny93/roadnet-go/internal/streamline"
)

const (
	serverName    = "roadnet-go"
	serverVersion = "0.1.0"
)

// Server represents the MCP server.
type Server struct {
	storage storage.NetworkStore
	server  *mcp.Server
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server backed by store.
func NewServer(store storage.NetworkStore) *Server {
	s := &Server{
		storage: store,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)
	s.register()

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	nameSchema := &jsonschema.Schema{Type: "string", Description: "Name of the stored network"}

	return []Tool{
		{
			Name:        "roadnet_generate",
			Description: "Generate a road network from a scene and store it. Without a scene the baseline city is used.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"name":  nameSchema,
					"seed":  {Type: "integer", Description: "Random seed overriding the scene seed"},
					"scene": {Type: "object", Description: "Scene document (world, fields, parameters)"},
				},
				Required: []string{"name"},
			},
		},
		{
			Name:        "roadnet_list",
			Description: "List all stored road networks with their sizes.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
		{
			Name:        "roadnet_stats",
			Description: "Show graph statistics, districts, lots and tracing statistics of a network.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"name": nameSchema,
				},
				Required: []string{"name"},
			},
		},
		{
			Name:        "roadnet_route",
			Description: "Find the shortest route between two nodes of a network.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"name": nameSchema,
					"from": {Type: "integer", Description: "Start node handle"},
					"to":   {Type: "integer", Description: "End node handle"},
				},
				Required: []string{"name", "from", "to"},
			},
		},
		{
			Name:        "roadnet_dead_ends",
			Description: "List the dead-end nodes of a network with their positions.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"name":  nameSchema,
					"limit": {Type: "integer", Description: "Maximum number of nodes to list"},
				},
				Required: []string{"name"},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "roadnet://overview",
			Name:        "Stored Networks",
			Description: "Summary of every stored road network",
			MimeType:    "text/plain",
		},
		{
			URI:         "roadnet://schema",
			Name:        "Scene Schema",
			Description: "Description of the scene file and the graph model",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "roadnet_generate":
		return s.handleGenerate(ctx, args)
	case "roadnet_list":
		return s.handleList(ctx)
	case "roadnet_stats":
		netName, _ := args["name"].(string)
		return s.handleStats(ctx, netName)
	case "roadnet_route":
		netName, _ := args["name"].(string)
		from, okFrom := args["from"].(float64)
		to, okTo := args["to"].(float64)
		if !okFrom || !okTo {
			return "", errors.New("from and to must be node handles")
		}
		return s.handleRoute(ctx, netName, graph.NodeID(from), graph.NodeID(to))
	case "roadnet_dead_ends":
		netName, _ := args["name"].(string)
		limit, _ := args["limit"].(float64)
		if limit == 0 {
			limit = 50
		}
		return s.handleDeadEnds(ctx, netName, int(limit))
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "roadnet://overview":
		return s.getOverview(ctx)
	case "roadnet://schema":
		return getSchema(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run serves MCP over the given streams until the client disconnects or ctx
// is cancelled.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	transport := &mcp.IOTransport{
		Reader: readCloser(stdin),
		Writer: writeCloser(stdout),
	}
	return s.server.Run(ctx, transport)
}

// register publishes the tools and resources on the SDK server.
func (s *Server) register() {
	for _, tool := range s.ListTools() {
		s.server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, s.toolHandler(tool.Name))
	}

	for _, res := range s.ListResources() {
		s.server.AddResource(&mcp.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MimeType,
		}, s.resourceHandler)
	}
}

// toolHandler adapts CallTool to the SDK. Tool failures are reported as
// error results so the client can show them.
func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, fmt.Errorf("decoding arguments: %w", err)
			}
		}

		text, err := s.CallTool(ctx, name, args)
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	}
}

func (s *Server) resourceHandler(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	text, err := s.ReadResource(ctx, uri)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: "text/plain", Text: text}},
	}, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func readCloser(r io.Reader) io.ReadCloser {
	if rc, ok := r.(io.ReadCloser); ok {
		return rc
	}
	return io.NopCloser(r)
}

func writeCloser(w io.Writer) io.WriteCloser {
	if wc, ok := w.(io.WriteCloser); ok {
		return wc
	}
	return nopWriteCloser{w}
}

// Tool Handlers

func (s *Server) handleGenerate(ctx context.Context, args map[string]any) (string, error) {
	name, _ := args["name"].(string)

	scene := config.Default()
	if raw, ok := args["scene"]; ok && raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return "", fmt.Errorf("encoding scene: %w", err)
		}
		if scene, err = config.Parse(data); err != nil {
			return "", err
		}
	}
	if seed, ok := args["seed"].(float64); ok {
		scene.Seed = int64(seed)
	}

	_, res, err := pipeline.RunPipeline(ctx, scene, s.storage, name, nil)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Generated %s\n\n", name)
	writeResult(&sb, res)
	fmt.Fprintf(&sb, "- Duration: %.2fs\n", res.DurationSecs)
	return sb.String(), nil
}

func (s *Server) handleList(ctx context.Context) (string, error) {
	summaries, err := s.storage.List(ctx)
	if err != nil {
		return "", err
	}
	if len(summaries) == 0 {
		return "No networks stored. Use roadnet_generate to create one.", nil
	}

	var sb strings.Builder
	sb.WriteString("## Stored networks\n\n")
	sb.WriteString("| Name | Streamlines | Nodes | Edges | Length | Seed |\n")
	sb.WriteString("|------|-------------|-------|-------|--------|------|\n")
	for _, sum := range summaries {
		fmt.Fprintf(&sb, "| %s | %d | %d | %d | %.1f | %d |\n",
			sum.Name, sum.Streamlines, sum.Nodes, sum.Edges, sum.Length, sum.Seed)
	}
	return sb.String(), nil
}

func (s *Server) handleStats(ctx context.Context, name string) (string, error) {
	n, err := s.load(ctx, name)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", name)
	writeResult(&sb, pipeline.Summarize(n))

	sb.WriteString("\n### Tracing\n\n")
	fmt.Fprintf(&sb, "- Rejected traces: %d\n", n.Stats.Rejected)
	fmt.Fprintf(&sb, "- Random seed attempts: %d\n", n.Stats.SeedAttempts)
	fmt.Fprintf(&sb, "- Dangling ends joined: %d\n", n.Stats.Joins)
	for _, term := range sortedTerminations(n) {
		fmt.Fprintf(&sb, "- %s: %d\n", term, n.Stats.Terminations[term])
	}

	if len(n.Districts) > 0 {
		sb.WriteString("\n### Districts\n\n")
		for _, d := range n.Districts {
			fmt.Fprintf(&sb, "- District %d: %d nodes, %d edges, %.1f length\n", d.ID, len(d.Nodes), d.Edges, d.Length)
		}
	}
	return sb.String(), nil
}

func (s *Server) handleRoute(ctx context.Context, name string, from, to graph.NodeID) (string, error) {
	n, err := s.load(ctx, name)
	if err != nil {
		return "", err
	}

	route, err := pipeline.ShortestRoute(n.Graph, from, to)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Route %d -> %d\n\n", from, to)
	fmt.Fprintf(&sb, "- Length: %.2f\n", route.Length)
	fmt.Fprintf(&sb, "- Edges: %d\n\n", len(route.Edges))
	for i, id := range route.Nodes {
		p := n.Graph.Node(id).Position
		fmt.Fprintf(&sb, "%d. node %d (%.1f, %.1f)\n", i+1, id, p.X, p.Y)
	}
	return sb.String(), nil
}

func (s *Server) handleDeadEnds(ctx context.Context, name string, limit int) (string, error) {
	n, err := s.load(ctx, name)
	if err != nil {
		return "", err
	}
	if len(n.DeadEnds) == 0 {
		return "No dead ends found.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Dead ends (%d)\n\n", len(n.DeadEnds))
	for i, id := range n.DeadEnds {
		if i >= limit {
			fmt.Fprintf(&sb, "... and %d more\n", len(n.DeadEnds)-limit)
			break
		}
		p := n.Graph.Node(id).Position
		fmt.Fprintf(&sb, "- node %d at (%.1f, %.1f)\n", id, p.X, p.Y)
	}
	return sb.String(), nil
}

func (s *Server) load(ctx context.Context, name string) (*pipeline.Network, error) {
	if name == "" {
		return nil, errors.New("network name required")
	}
	rec, err := s.storage.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return pipeline.Analyze(rec), nil
}

// Resource Handlers

func (s *Server) getOverview(ctx context.Context) (string, error) {
	summaries, err := s.storage.List(ctx)
	if err != nil {
		return "", err
	}

	var nodes, edges int
	var length float64
	for _, sum := range summaries {
		nodes += sum.Nodes
		edges += sum.Edges
		length += sum.Length
	}

	var sb strings.Builder
	sb.WriteString("# Road Network Overview\n\n")
	fmt.Fprintf(&sb, "**Networks:** %d\n", len(summaries))
	fmt.Fprintf(&sb, "**Nodes:** %d\n", nodes)
	fmt.Fprintf(&sb, "**Edges:** %d\n", edges)
	fmt.Fprintf(&sb, "**Road length:** %.1f\n", length)
	if len(summaries) > 0 {
		sb.WriteString("\n## Networks\n\n")
		for _, sum := range summaries {
			fmt.Fprintf(&sb, "- %s (%s)\n", sum.Name, sum.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}
	return sb.String(), nil
}

func getSchema() string {
	var sb strings.Builder
	sb.WriteString("# Scene Schema\n\n")
	sb.WriteString("| Key | Type | Description |\n")
	sb.WriteString("|-----|------|-------------|\n")
	sb.WriteString("| `world` | {origin: [x,y], size: [w,h]} | Rectangle all tracing happens in |\n")
	sb.WriteString("| `start` | [x,y] | First seed, defaults to the world centre |\n")
	sb.WriteString("| `seed` | integer | Random seed for re-seeding |\n")
	sb.WriteString("| `fields` | list | Basis fields: kind (grid, radial), center, size, decay, angle |\n")
	sb.WriteString("| `parameters` | object | dsep, dtest, dstep, dcirclejoin, dlookahead, joinangle, path_iterations, seed_tries, simplify_tolerance, collide_early |\n")
	sb.WriteString("| `merge_epsilon` | number | Distance under which graph nodes merge |\n")
	sb.WriteString("\n## Graph Model\n\n")
	sb.WriteString("| Element | Properties |\n")
	sb.WriteString("|---------|------------|\n")
	sb.WriteString("| `node` | id, position, incident half-edges (clockwise from +Y), has_neighbor |\n")
	sb.WriteString("| `edge` | id, from, to, points, streamline, major |\n")
	return sb.String()
}

// Helper functions

func writeResult(sb *strings.Builder, res *pipeline.PipelineResult) {
	fmt.Fprintf(sb, "- Streamlines: %d\n", res.Streamlines)
	fmt.Fprintf(sb, "- Nodes: %d\n", res.Nodes)
	fmt.Fprintf(sb, "- Edges: %d\n", res.Edges)
	fmt.Fprintf(sb, "- Junctions: %d\n", res.Junctions)
	fmt.Fprintf(sb, "- Dead ends: %d\n", res.DeadEnds)
	fmt.Fprintf(sb, "- Districts: %d\n", res.Districts)
	fmt.Fprintf(sb, "- Lots: %d\n", res.Lots)
	fmt.Fprintf(sb, "- Road length: %.1f\n", res.Length)
	if res.Ambiguities > 0 {
		fmt.Fprintf(sb, "- Merged node candidates: %d\n", res.Ambiguities)
	}
}

func sortedTerminations(n *pipeline.Network) []streamline.Termination {
	terms := make([]streamline.Termination, 0, len(n.Stats.Terminations))
	for term := range n.Stats.Terminations {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i] < terms[j] })
	return terms
}
