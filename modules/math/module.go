// Package math implements the numeric binary operator nodes (math.add,
// math.sub, math.mul, math.div). Operands widen to the wider of their kinds
// before the operator applies; the result carries that kind.
package math

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
	m, ok := n.(*graph.Math)
	if !ok {
		return false, nil
	}

	a := s.DataPath(m.A)
	b := s.DataPath(m.B)

	err := s.DataPath(m.Out).Bind(func() (any, error) {
		x, err := path.GetNumeric(a)
		if err != nil {
			return nil, err
		}
		y, err := path.GetNumeric(b)
		if err != nil {
			return nil, err
		}
		r, err := value.Apply(m.Op, x, y)
		if err != nil {
			return nil, &exec.NodeEvalError{NodeKind: m.Kind(), Err: err}
		}
		return r, nil
	})
	return true, err
}

// Register registers the executor with the engine. One executor serves all
// four operator kinds; each kind still gets its own node spec entry.
func (m *Module) Register(r *exec.Registry) {
	e := executor{}
	for i, op := range []value.Op{value.OpAdd, value.OpSub, value.OpMul, value.OpDiv} {
		spec := exec.NodeSpec{
			Kind:        "math." + op.String(),
			Description: "Numeric binary operator under widening.",
			Ports: []exec.Port{
				exec.DataIn("a"),
				exec.DataIn("b"),
				exec.DataOut("out"),
			},
		}
		if i == 0 {
			r.Register(spec, e)
			continue
		}
		// Later kinds only contribute spec entries; dispatch happens on the
		// node's runtime type, not the kind string.
		r.Register(spec, nil)
	}
}
