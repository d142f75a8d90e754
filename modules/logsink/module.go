// Package logsink implements the log node: a control-driven sink that pulls
// its value input and writes it to the run's structured log.
package logsink

import (
	"github.com/valaphee/flow/internal/ctxlog"
	"github.com/valaphee/flow/internal/exec"
	"github.com/valaphee/flow/internal/graph"
	"github.com/valaphee/flow/internal/value"
)

// Module implements the exec.Module interface for this package.
type Module struct{}

type executor struct{}

func (executor) Bind(s exec.Scope, n graph.Node) (bool, error) {
	l, ok := n.(*graph.Log)
	if !ok {
		return false, nil
	}
	val := s.DataPath(l.Value)
	err := s.ControlPath(l.In).Declare(func() error {
		v, err := val.Get()
		if err != nil {
			return err
		}
		ctxlog.FromContext(s.Context()).Info("Log node.", "value", v, "type", value.TypeName(v))
		return nil
	})
	return true, err
}

// Register registers the executor with the engine.
func (m *Module) Register(r *exec.Registry) {
	r.Register(exec.NodeSpec{
		Kind:        "log",
		Description: "Pulls its value input and logs it.",
		Ports: []exec.Port{
			exec.ControlIn("in"),
			exec.DataIn("value"),
		},
	}, executor{})
}
