package scope_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valaphee/flow/internal/exec"
	"github.com/valaphee/flow/internal/graph"
	"github.com/valaphee/flow/internal/path"
	"github.com/valaphee/flow/internal/runtime"
	"github.com/valaphee/flow/internal/scope"
	"github.com/valaphee/flow/internal/value"
	"github.com/valaphee/flow/modules/branch"
	"github.com/valaphee/flow/modules/entry"
	"github.com/valaphee/flow/modules/literal"
	"github.com/valaphee/flow/modules/mapops"
	mathmod "github.com/valaphee/flow/modules/math"
	"github.com/valaphee/flow/modules/sel"
)

// recorder replaces the log sink in tests: it handles log nodes and records
// every pulled value.
type recorder struct {
	mu     sync.Mutex
	values []any
}

func (r *recorder) Bind(s exec.Scope, n graph.Node) (bool, error) {
	l, ok := n.(*graph.Log)
	if !ok {
		return false, nil
	}
	val := s.DataPath(l.Value)
	return true, s.ControlPath(l.In).Declare(func() error {
		v, err := val.Get()
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.values = append(r.values, v)
		r.mu.Unlock()
		return nil
	})
}

func (r *recorder) recorded() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.values...)
}

func newRegistry(rec *recorder) *exec.Registry {
	reg := exec.New()
	for _, m := range []exec.Module{
		&entry.Module{},
		&branch.Module{},
		&sel.Module{},
		&mathmod.Module{},
		&mapops.Module{},
		&literal.Module{},
	} {
		m.Register(reg)
	}
	if rec != nil {
		reg.Register(exec.NodeSpec{Kind: "log", Ports: []exec.Port{exec.ControlIn("in"), exec.DataIn("value")}}, rec)
	}
	return reg
}

func runScope(t *testing.T, g *graph.Graph, rec *recorder) *scope.Scope {
	t.Helper()
	host := runtime.NewHost(context.Background())
	s, err := scope.New(context.Background(), g, newRegistry(rec), host, nil)
	require.NoError(t, err)
	s.Run()
	s.Wait()
	return s
}

func TestEntryMulSink(t *testing.T) {
	rec := &recorder{}
	g := &graph.Graph{
		Name: "mul",
		Nodes: []graph.Node{
			&graph.Entry{Out: 1},
			&graph.Literal{Value: int32(3), Out: 2},
			&graph.Literal{Value: int32(4), Out: 3},
			&graph.Math{Op: value.OpMul, A: 2, B: 3, Out: 4},
			&graph.Log{In: 1, Value: 4},
		},
	}
	runScope(t, g, rec)

	got := rec.recorded()
	require.Len(t, got, 1)
	assert.Equal(t, int32(12), got[0])
	assert.Equal(t, value.Int, value.KindOf(got[0]))
}

func TestBranch(t *testing.T) {
	build := func(discriminator string) (*graph.Graph, *recorder) {
		rec := &recorder{}
		g := &graph.Graph{
			Name: "branch",
			Nodes: []graph.Node{
				&graph.Entry{Out: 1},
				&graph.Literal{Value: discriminator, Out: 2},
				&graph.Branch{In: 1, Value: 2, KeyKind: value.String, Cases: map[string]int32{"a": 10, "b": 11}, Default: 12},
				&graph.Literal{Value: "path-10", Out: 20},
				&graph.Literal{Value: "path-11", Out: 21},
				&graph.Literal{Value: "path-12", Out: 22},
				&graph.Log{In: 10, Value: 20},
				&graph.Log{In: 11, Value: 21},
				&graph.Log{In: 12, Value: 22},
			},
		}
		return g, rec
	}

	t.Run("matching case fires exactly one output", func(t *testing.T) {
		g, rec := build("b")
		runScope(t, g, rec)
		assert.Equal(t, []any{"path-11"}, rec.recorded())
	})

	t.Run("unmatched value fires the default", func(t *testing.T) {
		g, rec := build("c")
		runScope(t, g, rec)
		assert.Equal(t, []any{"path-12"}, rec.recorded())
	})
}

func TestBranchTotalOverBoolNeverDefaults(t *testing.T) {
	for _, discriminator := range []bool{true, false} {
		rec := &recorder{}
		g := &graph.Graph{
			Name: "total",
			Nodes: []graph.Node{
				&graph.Entry{Out: 1},
				&graph.Literal{Value: discriminator, Out: 2},
				&graph.Branch{In: 1, Value: 2, KeyKind: value.Bool, Cases: map[string]int32{"true": 10, "false": 11}, Default: 12},
				&graph.Literal{Value: "true-case", Out: 20},
				&graph.Literal{Value: "false-case", Out: 21},
				&graph.Literal{Value: "default-case", Out: 22},
				&graph.Log{In: 10, Value: 20},
				&graph.Log{In: 11, Value: 21},
				&graph.Log{In: 12, Value: 22},
			},
		}
		runScope(t, g, rec)
		got := rec.recorded()
		require.Len(t, got, 1)
		assert.NotEqual(t, "default-case", got[0])
	}
}

func TestSelectForwardsPulls(t *testing.T) {
	g := &graph.Graph{
		Name: "select",
		Nodes: []graph.Node{
			&graph.Literal{Value: "A", Out: 4},
			&graph.Literal{Value: "B", Out: 5},
			&graph.Literal{Value: "D", Out: 6},
			&graph.Select{In: 3, KeyKind: value.Int, Cases: map[string]int32{"0": 4, "1": 5}, Default: 6, Out: 7},
		},
	}
	host := runtime.NewHost(context.Background())
	s, err := scope.New(context.Background(), g, newRegistry(nil), host, nil)
	require.NoError(t, err)

	// The discriminator edge has no producing node; stand in for a mutable
	// upstream.
	discriminator := int32(1)
	require.NoError(t, s.DataPath(3).Bind(func() (any, error) { return discriminator, nil }))

	v, err := s.DataPath(7).Get()
	require.NoError(t, err)
	assert.Equal(t, "B", v)

	// Upstream changed between pulls; select forwards, it does not cache.
	discriminator = 2
	v, err = s.DataPath(7).Get()
	require.NoError(t, err)
	assert.Equal(t, "D", v)
}

func TestSelectEmptyCasesIsDirectWire(t *testing.T) {
	g := &graph.Graph{
		Name: "wire",
		Nodes: []graph.Node{
			&graph.Literal{Value: int32(0), Out: 1},
			&graph.Literal{Value: "D", Out: 2},
			&graph.Select{In: 1, KeyKind: value.Int, Default: 2, Out: 3},
		},
	}
	host := runtime.NewHost(context.Background())
	s, err := scope.New(context.Background(), g, newRegistry(nil), host, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		v, err := s.DataPath(3).Get()
		require.NoError(t, err)
		assert.Equal(t, "D", v)
	}
}

func TestMapRemove(t *testing.T) {
	input := map[string]any{"x": int32(1), "y": int32(2)}
	g := &graph.Graph{
		Name: "remove",
		Nodes: []graph.Node{
			&graph.Literal{Value: input, Out: 1},
			&graph.Literal{Value: "x", Out: 2},
			&graph.MapRemove{In: 1, Key: 2, Out: 3},
		},
	}
	host := runtime.NewHost(context.Background())
	s, err := scope.New(context.Background(), g, newRegistry(nil), host, nil)
	require.NoError(t, err)

	v, err := s.DataPath(3).Get()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"y": int32(2)}, v)

	// Second pull observes the original map unchanged.
	v, err = s.DataPath(3).Get()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"y": int32(2)}, v)
	assert.Equal(t, map[string]any{"x": int32(1), "y": int32(2)}, input)
}

func TestMapSetAndGet(t *testing.T) {
	g := &graph.Graph{
		Name: "setget",
		Nodes: []graph.Node{
			&graph.Literal{Value: map[string]any{"x": int32(1)}, Out: 1},
			&graph.Literal{Value: "y", Out: 2},
			&graph.Literal{Value: int32(2), Out: 3},
			&graph.MapSet{In: 1, Key: 2, Value: 3, Out: 4},
			&graph.MapGet{In: 4, Key: 2, Out: 5},
		},
	}
	host := runtime.NewHost(context.Background())
	s, err := scope.New(context.Background(), g, newRegistry(nil), host, nil)
	require.NoError(t, err)

	v, err := s.DataPath(4).Get()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": int32(1), "y": int32(2)}, v)

	v, err = s.DataPath(5).Get()
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

func TestConcurrentEntries(t *testing.T) {
	rec := &recorder{}
	g := &graph.Graph{
		Name: "concurrent",
		Nodes: []graph.Node{
			&graph.Entry{Out: 1},
			&graph.Entry{Out: 2},
			&graph.Literal{Value: "first", Out: 3},
			&graph.Literal{Value: "second", Out: 4},
			&graph.Log{In: 1, Value: 3},
			&graph.Log{In: 2, Value: 4},
		},
	}
	runScope(t, g, rec)

	got := rec.recorded()
	assert.ElementsMatch(t, []any{"first", "second"}, got)
}

func TestBindingErrors(t *testing.T) {
	host := runtime.NewHost(context.Background())

	t.Run("no executor for a node kind", func(t *testing.T) {
		g := &graph.Graph{Name: "x", Nodes: []graph.Node{&graph.Log{In: 1, Value: 2}}}
		reg := exec.New()
		(&entry.Module{}).Register(reg)

		_, err := scope.New(context.Background(), g, reg, host, nil)
		var nee *exec.NoExecutorError
		require.ErrorAs(t, err, &nee)
		assert.Equal(t, "log", nee.NodeKind)
	})

	t.Run("double bind aborts construction", func(t *testing.T) {
		g := &graph.Graph{
			Name: "x",
			Nodes: []graph.Node{
				&graph.Literal{Value: int32(1), Out: 1},
				&graph.Literal{Value: int32(2), Out: 1},
			},
		}
		_, err := scope.New(context.Background(), g, newRegistry(nil), host, nil)
		var dbe *path.DoubleBindError
		require.ErrorAs(t, err, &dbe)
		assert.Equal(t, int32(1), dbe.ID)
	})

	t.Run("entry with no declared body fails verification", func(t *testing.T) {
		g := &graph.Graph{Name: "x", Nodes: []graph.Node{&graph.Entry{Out: 1}}}
		_, err := scope.New(context.Background(), g, newRegistry(nil), host, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no declared body")
	})
}

func TestPathIdentity(t *testing.T) {
	g := &graph.Graph{Name: "x", Nodes: []graph.Node{&graph.Literal{Value: int32(1), Out: 1}}}
	host := runtime.NewHost(context.Background())
	s, err := scope.New(context.Background(), g, newRegistry(nil), host, nil)
	require.NoError(t, err)

	assert.Same(t, s.DataPath(1), s.DataPath(1))
	assert.Same(t, s.ControlPath(9), s.ControlPath(9))
	assert.Equal(t, 2, s.PathCount())
}

func TestScopeIDsAreUnique(t *testing.T) {
	g := &graph.Graph{Name: "x", Nodes: []graph.Node{&graph.Literal{Value: int32(1), Out: 1}}}
	host := runtime.NewHost(context.Background())

	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		s, err := scope.New(context.Background(), g, newRegistry(nil), host, nil)
		require.NoError(t, err)
		id := s.ID()
		assert.Len(t, id, 36)
		assert.False(t, seen[id], "duplicate scope id %s", id)
		seen[id] = true
	}
}

func TestTaskFailureLeavesOtherTasksRunning(t *testing.T) {
	rec := &recorder{}
	g := &graph.Graph{
		Name: "partial",
		Nodes: []graph.Node{
			// First entry pulls an unbound data path and fails.
			&graph.Entry{Out: 1},
			&graph.Log{In: 1, Value: 99},
			// Second entry succeeds independently.
			&graph.Entry{Out: 2},
			&graph.Literal{Value: "ok", Out: 3},
			&graph.Log{In: 2, Value: 3},
		},
	}
	bus := runtime.NewBus()
	events, cancel := bus.Subscribe()
	defer cancel()

	host := runtime.NewHost(context.Background())
	s, err := scope.New(context.Background(), g, newRegistry(rec), host, bus)
	require.NoError(t, err)
	s.Run()
	s.Wait()

	assert.Equal(t, []any{"ok"}, rec.recorded())

	var types []string
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	assert.Contains(t, types, runtime.EventScopeStarted)
	assert.Contains(t, types, runtime.EventTaskFailed)
	assert.Contains(t, types, runtime.EventTaskSettled)
}
