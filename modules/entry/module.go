// Package entry implements the entry node: the launch point of a control
// chain. The executor only materializes the outgoing control path; invoking
// it at run start is the scope's job.
package entry

import (
	"github.com/valaphee/flow/internal/exec"
	"github.com/valaphee/flow/internal/graph"
)

// Module implements the exec.Module interface for this package.
type Module struct{}

type executor struct{}

func (executor) Bind(s exec.Scope, n graph.Node) (bool, error) {
	e, ok := n.(*graph.Entry)
	if !ok {
		return false, nil
	}
	s.ControlPath(e.Out)
	return true, nil
}

// Register registers the executor with the engine.
func (m *Module) Register(r *exec.Registry) {
	r.Register(exec.NodeSpec{
		Kind:        "entry",
		Description: "Initiates a control chain when a run starts.",
		Ports:       []exec.Port{exec.ControlOut("out")},
	}, executor{})
}
