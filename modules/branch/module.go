// Package branch implements the branch node: an incoming control invocation
// pulls the discriminator value and is routed to the matching case output,
// falling back to the default output.
package branch

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
	b, ok := n.(*graph.Branch)
	if !ok {
		return false, nil
	}

	discriminator := s.DataPath(b.Value)
	cases := make(map[string]*path.Control, len(b.Cases))
	for key, id := range b.Cases {
		cases[key] = s.ControlPath(id)
	}
	fallback := s.ControlPath(b.Default)

	err := s.ControlPath(b.In).Declare(func() error {
		v, err := discriminator.Get()
		if err != nil {
			return err
		}
		// Value equality against the declared key kind; a value outside the
		// key kind's class matches no case.
		if key, ok := value.MatchKey(v, b.KeyKind); ok {
			if out, ok := cases[key]; ok {
				return out.Invoke()
			}
		}
		return fallback.Invoke()
	})
	return true, err
}

// Register registers the executor with the engine.
func (m *Module) Register(r *exec.Registry) {
	r.Register(exec.NodeSpec{
		Kind:        "branch",
		Description: "Routes a control invocation by a pulled discriminator value.",
		Ports: []exec.Port{
			exec.ControlIn("in"),
			exec.DataIn("value"),
			exec.ControlOut("cases"),
			exec.ControlOut("default"),
		},
	}, executor{})
}
