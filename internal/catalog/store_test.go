package catalog

import (
	"compress/gzip"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valaphee/flow/internal/graph"
	"github.com/valaphee/flow/internal/value"
)

func demoGraph(name string) *graph.Graph {
	return &graph.Graph{
		Name: name,
		Nodes: []graph.Node{
			&graph.Entry{Out: 1},
			&graph.Literal{Value: int32(3), Out: 2},
			&graph.Literal{Value: int32(4), Out: 3},
			&graph.Math{Op: value.OpMul, A: 2, B: 3, Out: 4},
			&graph.Log{In: 1, Value: 4},
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(demoGraph("Demo")))

	// Lookup is case-insensitive.
	g, ok := s.Lookup("demo")
	require.True(t, ok)
	assert.Equal(t, "Demo", g.Name)
	_, ok = s.Lookup("DEMO")
	assert.True(t, ok)

	// A fresh store over the same directory sees the persisted document.
	s2, err := Open(ctx, dir)
	require.NoError(t, err)
	g2, ok := s2.Lookup("demo")
	require.True(t, ok)
	assert.Equal(t, g, g2)
}

func TestStoreFileLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(demoGraph("Demo")))

	name := base64.URLEncoding.EncodeToString([]byte("demo")) + ".gph"
	file := filepath.Join(dir, name)
	f, err := os.Open(file)
	require.NoError(t, err, "expected file %s", name)
	defer f.Close()

	// Body must be a GZIP stream.
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	zr.Close()
}

func TestStoreList(t *testing.T) {
	s, err := Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Save(demoGraph("b")))
	require.NoError(t, s.Save(demoGraph("a")))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "b", list[1].Name)
}

func TestStoreDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(demoGraph("demo")))

	require.NoError(t, s.Delete("demo"))
	_, ok := s.Lookup("demo")
	assert.False(t, ok)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, s.Delete("demo"), ErrNotFound)
}

func TestImportHCL(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "demo.hcl")
	require.NoError(t, os.WriteFile(src, []byte(`
graph "demo" {
  node "entry" "start" { out = 1 }
  node "literal" "three" {
    const = 3
    out   = 2
  }
  node "literal" "four" {
    const = 4
    out   = 3
  }
  node "math.mul" "m" {
    a   = 2
    b   = 3
    out = 4
  }
  node "log" "sink" {
    in    = 1
    value = 4
  }
  node "branch" "b" {
    in       = 5
    value    = 2
    key_type = "int"
    cases    = { "3" = 6 }
    default  = 7
  }
}
`), 0o600))

	s, err := Open(context.Background(), t.TempDir())
	require.NoError(t, err)

	count, err := Import(context.Background(), s, src)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	g, ok := s.Lookup("demo")
	require.True(t, ok)
	require.Len(t, g.Nodes, 6)
	assert.Equal(t, &graph.Entry{Out: 1}, g.Nodes[0])
	assert.Equal(t, &graph.Literal{Value: int32(3), Out: 2}, g.Nodes[1])
	assert.Equal(t, &graph.Math{Op: value.OpMul, A: 2, B: 3, Out: 4}, g.Nodes[3])
	assert.Equal(t, &graph.Branch{In: 5, Value: 2, KeyKind: value.Int, Cases: map[string]int32{"3": 6}, Default: 7}, g.Nodes[5])
}

func TestLoadHCLFileLiteralTyping(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "lit.hcl")
	require.NoError(t, os.WriteFile(src, []byte(`
graph "lit" {
  node "literal" "a" {
    const = 1.5
    out   = 1
  }
  node "literal" "b" {
    const = 2
    type  = "long"
    out   = 2
  }
  node "literal" "c" {
    const = { x = 1 }
    out   = 3
  }
}
`), 0o600))

	graphs, err := LoadHCLFile(src)
	require.NoError(t, err)
	require.Len(t, graphs, 1)
	nodes := graphs[0].Nodes
	assert.Equal(t, float64(1.5), nodes[0].(*graph.Literal).Value)
	assert.Equal(t, int64(2), nodes[1].(*graph.Literal).Value)
	assert.Equal(t, map[string]any{"x": int32(1)}, nodes[2].(*graph.Literal).Value)
}
