package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/roadnet-go/internal/pipeline"
	"github.com/Benny93/roadnet-go/internal/storage"
)

// smallScene is a rotated grid over a 300 x 300 world, as tool arguments.
const smallScene = `{
	"world": {"origin": [0, 0], "size": [300, 300]},
	"seed": 5,
	"fields": [{"kind": "grid", "center": [150, 150], "size": 1000, "decay": 0, "angle": 0.4}],
	"parameters": {"dsep": 50, "dtest": 15, "dlookahead": 60}
}`

func sceneArg(t *testing.T) map[string]any {
	t.Helper()

	var scene map[string]any
	require.NoError(t, json.Unmarshal([]byte(smallScene), &scene))
	return scene
}

// generatedServer returns a server whose store holds the network "grid".
func generatedServer(t *testing.T) (*Server, storage.NetworkStore) {
	t.Helper()

	store := storage.NewMemoryBackend()
	server := NewServer(store)
	_, err := server.CallTool(context.Background(), "roadnet_generate", map[string]any{
		"name":  "grid",
		"scene": sceneArg(t),
	})
	require.NoError(t, err)
	return server, store
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	server := NewServer(storage.NewMemoryBackend())
	assert.NotNil(t, server)
	assert.NotNil(t, server.storage)
	assert.NotNil(t, server.server)
}

func TestServer_ListTools(t *testing.T) {
	t.Parallel()

	tools := NewServer(storage.NewMemoryBackend()).ListTools()

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
		require.NotNil(t, tool.InputSchema)
		assert.Equal(t, "object", tool.InputSchema.Type)
	}
	assert.Equal(t, []string{
		"roadnet_generate",
		"roadnet_list",
		"roadnet_stats",
		"roadnet_route",
		"roadnet_dead_ends",
	}, names)
}

func TestServer_CallTool(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("Generate", func(t *testing.T) {
		t.Parallel()
		store := storage.NewMemoryBackend()
		server := NewServer(store)

		out, err := server.CallTool(ctx, "roadnet_generate", map[string]any{
			"name":  "grid",
			"seed":  float64(8),
			"scene": sceneArg(t),
		})
		require.NoError(t, err)
		assert.Contains(t, out, "Generated grid")
		assert.Contains(t, out, "Streamlines:")

		rec, err := store.Load(ctx, "grid")
		require.NoError(t, err)
		assert.Equal(t, int64(8), rec.Scene.Seed)
		assert.Equal(t, 300.0, rec.Scene.World.Size[0])
	})

	t.Run("GenerateRejectsBadScene", func(t *testing.T) {
		t.Parallel()
		server := NewServer(storage.NewMemoryBackend())

		_, err := server.CallTool(ctx, "roadnet_generate", map[string]any{
			"name":  "bad",
			"scene": map[string]any{"world": map[string]any{"origin": []any{0, 0}, "size": []any{-1, 1}}},
		})
		assert.Error(t, err)
	})

	t.Run("List", func(t *testing.T) {
		t.Parallel()
		server, _ := generatedServer(t)

		out, err := server.CallTool(ctx, "roadnet_list", nil)
		require.NoError(t, err)
		assert.Contains(t, out, "| grid |")
	})

	t.Run("ListEmpty", func(t *testing.T) {
		t.Parallel()
		out, err := NewServer(storage.NewMemoryBackend()).CallTool(ctx, "roadnet_list", nil)
		require.NoError(t, err)
		assert.Contains(t, out, "No networks stored")
	})

	t.Run("Stats", func(t *testing.T) {
		t.Parallel()
		server, _ := generatedServer(t)

		out, err := server.CallTool(ctx, "roadnet_stats", map[string]any{"name": "grid"})
		require.NoError(t, err)
		assert.Contains(t, out, "## grid")
		assert.Contains(t, out, "Junctions:")
		assert.Contains(t, out, "bounds_exit")
		assert.Contains(t, out, "District 0")
	})

	t.Run("Route", func(t *testing.T) {
		t.Parallel()
		server, store := generatedServer(t)

		rec, err := store.Load(ctx, "grid")
		require.NoError(t, err)
		district := pipeline.Analyze(rec).Districts[0]
		from := district.Nodes[0]
		to := district.Nodes[len(district.Nodes)-1]

		out, err := server.CallTool(ctx, "roadnet_route", map[string]any{
			"name": "grid",
			"from": float64(from),
			"to":   float64(to),
		})
		require.NoError(t, err)
		assert.Contains(t, out, "Length:")
	})

	t.Run("RouteUnknownNode", func(t *testing.T) {
		t.Parallel()
		server, _ := generatedServer(t)

		_, err := server.CallTool(ctx, "roadnet_route", map[string]any{"name": "grid", "from": float64(0), "to": float64(1e6)})
		assert.ErrorIs(t, err, pipeline.ErrNodeNotFound)

		_, err = server.CallTool(ctx, "roadnet_route", map[string]any{"name": "grid"})
		assert.Error(t, err)
	})

	t.Run("DeadEnds", func(t *testing.T) {
		t.Parallel()
		server, _ := generatedServer(t)

		out, err := server.CallTool(ctx, "roadnet_dead_ends", map[string]any{"name": "grid", "limit": float64(1)})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "## Dead ends") || out == "No dead ends found.")
	})

	t.Run("MissingNetwork", func(t *testing.T) {
		t.Parallel()
		server := NewServer(storage.NewMemoryBackend())

		_, err := server.CallTool(ctx, "roadnet_stats", map[string]any{"name": "nowhere"})
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = server.CallTool(ctx, "roadnet_stats", map[string]any{})
		assert.Error(t, err)
	})

	t.Run("UnknownTool", func(t *testing.T) {
		t.Parallel()
		_, err := NewServer(storage.NewMemoryBackend()).CallTool(ctx, "roadnet_nope", nil)
		assert.Error(t, err)
	})
}

func TestServer_Resources(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server, _ := generatedServer(t)

	resources := server.ListResources()
	require.Len(t, resources, 2)

	overview, err := server.ReadResource(ctx, "roadnet://overview")
	require.NoError(t, err)
	assert.Contains(t, overview, "**Networks:** 1")
	assert.Contains(t, overview, "- grid")

	schema, err := server.ReadResource(ctx, "roadnet://schema")
	require.NoError(t, err)
	assert.Contains(t, schema, "merge_epsilon")
	assert.Contains(t, schema, "dlookahead")

	_, err = server.ReadResource(ctx, "roadnet://nope")
	assert.Error(t, err)
}

// session drives a server over in-memory pipes, one request at a time.
type session struct {
	in     *io.PipeWriter
	out    *bufio.Scanner
	nextID int
}

func startSession(t *testing.T, server *Server) *session {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx, inR, outW)
		_ = outW.Close()
	}()

	t.Cleanup(func() {
		_ = inW.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	scanner := bufio.NewScanner(outR)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	return &session{in: inW, out: scanner}
}

func (s *session) notify(t *testing.T, method string) {
	t.Helper()

	msg, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "method": method, "params": map[string]any{}})
	require.NoError(t, err)
	_, err = s.in.Write(append(msg, '\n'))
	require.NoError(t, err)
}

// call sends a request and returns the response carrying its id.
func (s *session) call(t *testing.T, method string, params any) map[string]any {
	t.Helper()

	s.nextID++
	msg, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": s.nextID, "method": method, "params": params})
	require.NoError(t, err)
	_, err = s.in.Write(append(msg, '\n'))
	require.NoError(t, err)

	for s.out.Scan() {
		var resp map[string]any
		require.NoError(t, json.Unmarshal(s.out.Bytes(), &resp))
		if id, ok := resp["id"].(float64); ok && int(id) == s.nextID {
			return resp
		}
	}
	require.FailNow(t, "no response", "method %s: %v", method, s.out.Err())
	return nil
}

func toolText(t *testing.T, resp map[string]any) (string, bool) {
	t.Helper()

	result, ok := resp["result"].(map[string]any)
	require.True(t, ok, "response without result: %v", resp)
	content := result["content"].([]any)
	require.NotEmpty(t, content)
	isError, _ := result["isError"].(bool)
	return content[0].(map[string]any)["text"].(string), isError
}

func TestServer_Run(t *testing.T) {
	t.Parallel()

	server, _ := generatedServer(t)
	sess := startSession(t, server)

	initResp := sess.call(t, "initialize", map[string]any{
		"protocolVersion": "2025-06-18",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test-client", "version": "1.0.0"},
	})
	info := initResp["result"].(map[string]any)["serverInfo"].(map[string]any)
	assert.Equal(t, "roadnet-go", info["name"])
	sess.notify(t, "notifications/initialized")

	t.Run("ToolsList", func(t *testing.T) {
		resp := sess.call(t, "tools/list", map[string]any{})
		tools := resp["result"].(map[string]any)["tools"].([]any)
		require.Len(t, tools, 5)

		names := make([]string, len(tools))
		for i, tool := range tools {
			names[i] = tool.(map[string]any)["name"].(string)
		}
		assert.ElementsMatch(t, []string{
			"roadnet_generate", "roadnet_list", "roadnet_stats", "roadnet_route", "roadnet_dead_ends",
		}, names)
	})

	t.Run("ToolsCall", func(t *testing.T) {
		resp := sess.call(t, "tools/call", map[string]any{"name": "roadnet_list", "arguments": map[string]any{}})
		text, isError := toolText(t, resp)
		assert.False(t, isError)
		assert.Contains(t, text, "| grid |")
	})

	t.Run("ToolFailureIsErrorResult", func(t *testing.T) {
		resp := sess.call(t, "tools/call", map[string]any{"name": "roadnet_stats", "arguments": map[string]any{"name": "missing"}})
		text, isError := toolText(t, resp)
		assert.True(t, isError)
		assert.Contains(t, text, "not found")
	})

	t.Run("ResourcesList", func(t *testing.T) {
		resp := sess.call(t, "resources/list", map[string]any{})
		resources := resp["result"].(map[string]any)["resources"].([]any)
		assert.Len(t, resources, 2)
	})

	t.Run("ResourcesRead", func(t *testing.T) {
		resp := sess.call(t, "resources/read", map[string]any{"uri": "roadnet://schema"})
		contents := resp["result"].(map[string]any)["contents"].([]any)
		require.NotEmpty(t, contents)
		assert.Contains(t, contents[0].(map[string]any)["text"], "Scene Schema")
	})

	t.Run("UnknownMethod", func(t *testing.T) {
		resp := sess.call(t, "bogus", map[string]any{})
		assert.NotNil(t, resp["error"])
	})
}

func TestServer_RunNilStreams(t *testing.T) {
	t.Parallel()

	server := NewServer(storage.NewMemoryBackend())
	assert.Error(t, server.Run(context.Background(), nil, nil))
}
