// Package sel implements the select node: a pull on the output is forwarded
// to the data source matched by the pulled discriminator, or to the default
// source. Select performs no caching; pull semantics pass straight through.
package sel

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
	sel, ok := n.(*graph.Select)
	if !ok {
		return false, nil
	}

	discriminator := s.DataPath(sel.In)
	sources := make(map[string]*path.Data, len(sel.Cases))
	for key, id := range sel.Cases {
		sources[key] = s.DataPath(id)
	}
	fallback := s.DataPath(sel.Default)

	err := s.DataPath(sel.Out).Bind(func() (any, error) {
		v, err := discriminator.Get()
		if err != nil {
			return nil, err
		}
		if key, ok := value.MatchKey(v, sel.KeyKind); ok {
			if src, ok := sources[key]; ok {
				return src.Get()
			}
		}
		return fallback.Get()
	})
	return true, err
}

// Register registers the executor with the engine.
func (m *Module) Register(r *exec.Registry) {
	r.Register(exec.NodeSpec{
		Kind:        "select",
		Description: "Forwards a pull to the data source matched by a discriminator.",
		Ports: []exec.Port{
			exec.DataIn("in"),
			exec.DataIn("cases"),
			exec.DataIn("default"),
			exec.DataOut("out"),
		},
	}, executor{})
}
