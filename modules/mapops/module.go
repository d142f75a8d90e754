// Package mapops implements the map manipulation nodes: map.remove,
// map.set and map.get. Producers never mutate the pulled input map; remove
// and set build a fresh copy.
package mapops

import (
	"github.com/valaphee/flow/internal/exec"
	"github.com/valaphee/flow/internal/graph"
	"github.com/valaphee/flow/internal/path"
	"github.com/valaphee/flow/internal/value"
)

// Module implements the exec.Module interface for this package.
type Module struct{}

type executor struct{}

func (executor) Bind(s exec.Scope, n graph.Node) (bool, error) {
	switch n := n.(type) {
	case *graph.MapRemove:
		in := s.DataPath(n.In)
		key := s.DataPath(n.Key)
		err := s.DataPath(n.Out).Bind(func() (any, error) {
			m, k, err := pull(in, key)
			if err != nil {
				return nil, err
			}
			out := make(map[string]any, len(m))
			for mk, mv := range m {
				if mk != k {
					out[mk] = mv
				}
			}
			return out, nil
		})
		return true, err

	case *graph.MapSet:
		in := s.DataPath(n.In)
		key := s.DataPath(n.Key)
		val := s.DataPath(n.Value)
		err := s.DataPath(n.Out).Bind(func() (any, error) {
			m, k, err := pull(in, key)
			if err != nil {
				return nil, err
			}
			v, err := val.Get()
			if err != nil {
				return nil, err
			}
			out := make(map[string]any, len(m)+1)
			for mk, mv := range m {
				out[mk] = mv
			}
			out[k] = v
			return out, nil
		})
		return true, err

	case *graph.MapGet:
		in := s.DataPath(n.In)
		key := s.DataPath(n.Key)
		err := s.DataPath(n.Out).Bind(func() (any, error) {
			m, k, err := pull(in, key)
			if err != nil {
				return nil, err
			}
			return m[k], nil
		})
		return true, err
	}
	return false, nil
}

// pull reads the map input and the canonical key.
func pull(in, key *path.Data) (map[string]any, string, error) {
	m, err := path.GetAs[map[string]any](in)
	if err != nil {
		return nil, "", err
	}
	kv, err := key.Get()
	if err != nil {
		return nil, "", err
	}
	k, err := value.Key(kv)
	if err != nil {
		return nil, "", err
	}
	return m, k, nil
}

// Register registers the executor with the engine.
func (m *Module) Register(r *exec.Registry) {
	e := executor{}
	r.Register(exec.NodeSpec{
		Kind:        "map.remove",
		Description: "Produces the input map without the given key.",
		Ports: []exec.Port{
			exec.DataIn("in"),
			exec.DataIn("key"),
			exec.DataOut("out"),
		},
	}, e)
	r.Register(exec.NodeSpec{
		Kind:        "map.set",
		Description: "Produces the input map with the given key set.",
		Ports: []exec.Port{
			exec.DataIn("in"),
			exec.DataIn("key"),
			exec.DataIn("value"),
			exec.DataOut("out"),
		},
	}, nil)
	r.Register(exec.NodeSpec{
		Kind:        "map.get",
		Description: "Looks a key up in the input map; absent keys produce nil.",
		Ports: []exec.Port{
			exec.DataIn("in"),
			exec.DataIn("key"),
			exec.DataOut("out"),
		},
	}, nil)
}
