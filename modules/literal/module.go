// Package literal implements the typed constant data source node.
package literal

import (
	"github.com/valaphee/flow/internal/exec"
	"github.com/valaphee/flow/internal/graph"
)

// Module implements the exec.Module interface for this package.
type Module struct{}

type executor struct{}

func (executor) Bind(s exec.Scope, n graph.Node) (bool, error) {
	lit, ok := n.(*graph.Literal)
	if !ok {
		return false, nil
	}
	err := s.DataPath(lit.Out).Bind(func() (any, error) {
		return lit.Value, nil
	})
	return true, err
}

// Register registers the executor with the engine.
func (m *Module) Register(r *exec.Registry) {
	r.Register(exec.NodeSpec{
		Kind:        "literal",
		Description: "Typed constant data source.",
		Ports:       []exec.Port{exec.DataOut("out")},
	}, executor{})
}
