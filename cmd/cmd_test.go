package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/roadnet-go/internal/storage"
)

const smallScene = `{
	"world": {"origin": [0, 0], "size": [300, 300]},
	"seed": 5,
	"fields": [{"kind": "grid", "center": [150, 150], "size": 1000, "decay": 0, "angle": 0.4}],
	"parameters": {"dsep": 50, "dtest": 15, "dlookahead": 60}
}`

// generated returns globals pointing at a fresh store that holds the
// network "grid".
func generated(t *testing.T) (*Globals, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	scenePath := filepath.Join(dir, "scene.json")
	require.NoError(t, os.WriteFile(scenePath, []byte(smallScene), 0o644))

	out := &bytes.Buffer{}
	g := &Globals{DB: filepath.Join(dir, "store", "badger"), Quiet: true, Out: out}

	cmd := &GenerateCmd{Scene: scenePath, Name: "grid"}
	require.NoError(t, cmd.Run(g))
	return g, out
}

func TestGenerateCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("StoresNetwork", func(t *testing.T) {
		t.Parallel()

		g, out := generated(t)
		assert.Contains(t, out.String(), "Generated grid")
		assert.Contains(t, out.String(), "Streamlines:")

		store, err := openStore(g.DB, true)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		rec, err := store.Load(context.Background(), "grid")
		require.NoError(t, err)
		assert.Equal(t, int64(5), rec.Scene.Seed)
		assert.NotEmpty(t, rec.Streamlines)
		assert.Positive(t, rec.Graph.EdgeCount())
	})

	t.Run("SeedOverrideAndJSON", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		scenePath := filepath.Join(dir, "scene.json")
		require.NoError(t, os.WriteFile(scenePath, []byte(smallScene), 0o644))

		out := &bytes.Buffer{}
		g := &Globals{DB: filepath.Join(dir, "badger"), Out: out}
		cmd := &GenerateCmd{Scene: scenePath, Name: "seeded", Seed: 9, JSON: true}
		require.NoError(t, cmd.Run(g))

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Contains(t, result, "streamlines")
		assert.Contains(t, result, "nodes")

		n, err := loadNetwork(g.DB, "seeded")
		require.NoError(t, err)
		assert.Equal(t, int64(9), n.Scene.Seed)
	})

	t.Run("InvalidScene", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		scenePath := filepath.Join(dir, "scene.json")
		require.NoError(t, os.WriteFile(scenePath, []byte(`{"world": {"size": [0, 10]}}`), 0o644))

		g := &Globals{DB: filepath.Join(dir, "badger"), Quiet: true, Out: &bytes.Buffer{}}
		cmd := &GenerateCmd{Scene: scenePath, Name: "broken"}
		assert.Error(t, cmd.Run(g))
	})

	t.Run("InvalidName", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		scenePath := filepath.Join(dir, "scene.json")
		require.NoError(t, os.WriteFile(scenePath, []byte(smallScene), 0o644))

		g := &Globals{DB: filepath.Join(dir, "badger"), Quiet: true, Out: &bytes.Buffer{}}
		cmd := &GenerateCmd{Scene: scenePath, Name: "two words"}
		err := cmd.Run(g)
		assert.ErrorIs(t, err, storage.ErrInvalidName)
	})
}

func TestShowCmd_Run(t *testing.T) {
	t.Parallel()

	g, out := generated(t)

	t.Run("Text", func(t *testing.T) {
		out.Reset()
		require.NoError(t, (&ShowCmd{Name: "grid"}).Run(g))
		assert.Contains(t, out.String(), "grid")
		assert.Regexp(t, `Seed:\s+5\n`, out.String())
	})

	t.Run("JSON", func(t *testing.T) {
		out.Reset()
		require.NoError(t, (&ShowCmd{Name: "grid", JSON: true}).Run(g))

		var doc map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
		assert.Equal(t, "grid", doc["name"])
		assert.Contains(t, doc, "graph")
		assert.Contains(t, doc, "dead_ends")
		assert.Contains(t, doc, "districts")
		assert.Contains(t, doc, "lots")
	})

	t.Run("NotFound", func(t *testing.T) {
		err := (&ShowCmd{Name: "missing"}).Run(g)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestListCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("Stored", func(t *testing.T) {
		t.Parallel()

		g, out := generated(t)
		out.Reset()
		require.NoError(t, (&ListCmd{}).Run(g))
		assert.Contains(t, out.String(), "Stored networks:")
		assert.Contains(t, out.String(), "grid")
	})

	t.Run("NoStore", func(t *testing.T) {
		t.Parallel()

		g := &Globals{DB: filepath.Join(t.TempDir(), "badger"), Out: &bytes.Buffer{}}
		err := (&ListCmd{}).Run(g)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "roadnet generate")
	})
}

func TestRouteCmd_Run(t *testing.T) {
	t.Parallel()

	g, out := generated(t)

	n, err := loadNetwork(g.DB, "grid")
	require.NoError(t, err)
	require.Positive(t, n.Graph.EdgeCount())
	e := n.Graph.Edge(0)

	t.Run("AlongEdge", func(t *testing.T) {
		out.Reset()
		require.NoError(t, (&RouteCmd{Name: "grid", From: int(e.From), To: int(e.To)}).Run(g))
		assert.Contains(t, out.String(), "Route")
		assert.Contains(t, out.String(), "node")
	})

	t.Run("UnknownNode", func(t *testing.T) {
		err := (&RouteCmd{Name: "grid", From: 0, To: n.Graph.NodeCount()}).Run(g)
		assert.Error(t, err)
	})
}

func TestLotsCmd_Run(t *testing.T) {
	t.Parallel()

	g, out := generated(t)
	require.NoError(t, (&LotsCmd{Name: "grid", Limit: 3}).Run(g))
	assert.NotEmpty(t, out.String())
}

func TestExportCmd_Run(t *testing.T) {
	t.Parallel()

	g, out := generated(t)
	n, err := loadNetwork(g.DB, "grid")
	require.NoError(t, err)

	t.Run("Full", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "roads.json")
		out.Reset()
		require.NoError(t, (&ExportCmd{Name: "grid", Out: path}).Run(g))
		assert.Contains(t, out.String(), "Exported")

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var doc Export
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Equal(t, "grid", doc.Name)
		assert.Len(t, doc.Roads, n.Graph.EdgeCount())
		for _, road := range doc.Roads {
			assert.Equal(t, n.Graph.Edge(road.Edge).Points, road.Points)
		}
	})

	t.Run("Trimmed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "roads.json")
		require.NoError(t, (&ExportCmd{Name: "grid", Out: path, Clearance: 5}).Run(g))

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var doc Export
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.LessOrEqual(t, len(doc.Roads), n.Graph.EdgeCount())
		for _, road := range doc.Roads {
			assert.GreaterOrEqual(t, len(road.Points), 2)
		}
	})

	t.Run("NegativeClearance", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "roads.json")
		assert.Error(t, (&ExportCmd{Name: "grid", Out: path, Clearance: -1}).Run(g))
	})
}

func TestCleanCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("NoStore", func(t *testing.T) {
		t.Parallel()

		g := &Globals{DB: filepath.Join(t.TempDir(), "badger"), Out: &bytes.Buffer{}}
		assert.Error(t, (&CleanCmd{Force: true}).Run(g))
	})

	t.Run("OneNetwork", func(t *testing.T) {
		t.Parallel()

		g, _ := generated(t)
		require.NoError(t, (&CleanCmd{Name: "grid", Force: true}).Run(g))

		_, err := loadNetwork(g.DB, "grid")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		assert.ErrorIs(t, (&CleanCmd{Name: "grid", Force: true}).Run(g), storage.ErrNotFound)
	})

	t.Run("WholeStore", func(t *testing.T) {
		t.Parallel()

		g, _ := generated(t)
		require.NoError(t, (&CleanCmd{Force: true}).Run(g))

		_, err := os.Stat(g.DB)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestCLI_Execute(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scenePath := filepath.Join(dir, "scene.json")
	require.NoError(t, os.WriteFile(scenePath, []byte(smallScene), 0o644))
	db := filepath.Join(dir, "badger")

	cli := NewCLI()
	cli.Out = &bytes.Buffer{}
	require.NoError(t, cli.Execute([]string{"--db", db, "-q", "generate", "--scene", scenePath, "--name", "cli"}))

	n, err := loadNetwork(db, "cli")
	require.NoError(t, err)
	assert.Equal(t, "cli", n.Name)

	assert.Error(t, NewCLI().Execute([]string{"--db", db, "nosuchcommand"}))
}
