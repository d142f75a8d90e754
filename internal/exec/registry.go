// Package exec holds the node implementation registry: the discovery-order
// list of executors that bind node kinds to runnable closures during scope
// construction.
//
// The registry is built explicitly at startup from the ambient module set;
// nothing here scans packaged resources.
package exec

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/valaphee/flow/internal/graph"
	"github.com/valaphee/flow/internal/path"
)

// Scope is the view of a running scope that an executor binds against.
// Paths materialize on first query; the same edge id always yields the same
// path object within one scope.
type Scope interface {
	Context() context.Context
	DataPath(id int32) *path.Data
	ControlPath(id int32) *path.Control
}

// Executor binds one node kind. Bind inspects the node and, if the kind
// matches, installs producers on its output data paths and bodies on its
// incoming control paths, returning true. A false return means the kind was
// not handled and the next executor is tried.
type Executor interface {
	Bind(s Scope, n graph.Node) (bool, error)
}

// Module is the interface all built-in node packages implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry indexes node executors in discovery order.
type Registry struct {
	executors []Executor
	specs     []NodeSpec
}

// New creates an empty Registry instance.
func New() *Registry {
	return &Registry{}
}

// Register appends an executor and its node spec. Executors are consulted
// in registration order; the first matching one wins. A nil executor
// contributes only a spec entry, for kinds an earlier executor of the same
// module already dispatches on.
func (r *Registry) Register(spec NodeSpec, e Executor) {
	for _, s := range r.specs {
		if s.Kind == spec.Kind {
			panic(fmt.Sprintf("executor for node kind %q already registered", spec.Kind))
		}
	}
	slog.Debug("Registering node executor.", "kind", spec.Kind)
	r.specs = append(r.specs, spec)
	if e != nil {
		r.executors = append(r.executors, e)
	}
}

// Bind dispatches one node to the first matching executor.
func (r *Registry) Bind(s Scope, n graph.Node) error {
	for _, e := range r.executors {
		handled, err := e.Bind(s, n)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}
	return &NoExecutorError{NodeKind: n.Kind()}
}

// Specs returns the merged spec document of every registered node kind.
func (r *Registry) Specs() []NodeSpec {
	out := make([]NodeSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

// NoExecutorError reports a node kind no registered executor handles.
type NoExecutorError struct {
	NodeKind string
}

func (e *NoExecutorError) Error() string {
	return fmt.Sprintf("no executor for node kind %q", e.NodeKind)
}

// NodeEvalError wraps a failure raised from within a node's producer or
// body, attributing it to the node kind that observed it.
type NodeEvalError struct {
	NodeKind string
	Err      error
}

func (e *NodeEvalError) Error() string {
	return fmt.Sprintf("node %s: %v", e.NodeKind, e.Err)
}

func (e *NodeEvalError) Unwrap() error {
	return e.Err
}
