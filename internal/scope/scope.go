// Package scope implements one running instance of a graph: the per-run
// path registry, node binding, entry launch, and run lifetime.
package scope

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/valaphee/flow/internal/ctxlog"
	"github.com/valaphee/flow/internal/exec"
	"github.com/valaphee/flow/internal/graph"
	"github.com/valaphee/flow/internal/path"
	"github.com/valaphee/flow/internal/runtime"
)

// Scope owns the paths and tasks of one graph run. The graph itself is
// shared read-only and outlives the scope.
//
// Lifecycle: constructed and bound by New, running after Run, removed from
// the scope table on stop, collected once Wait returns.
type Scope struct {
	id    uuid.UUID
	graph *graph.Graph
	host  *runtime.Host
	bus   *runtime.Bus
	ctx   context.Context

	mu      sync.Mutex
	data    map[int32]*path.Data
	control map[int32]*path.Control

	tasks sync.WaitGroup
}

// New constructs a scope over g and binds every node through the executor
// registry. Binding failures (NoExecutorError, DoubleBindError) abort
// construction; no tasks are launched and the scope is discarded.
//
// After binding, every entry's outgoing control path must have a declared
// body; data paths stay lazy and fail only when pulled unbound.
func New(ctx context.Context, g *graph.Graph, reg *exec.Registry, host *runtime.Host, bus *runtime.Bus) (*Scope, error) {
	s := &Scope{
		id:      uuid.New(),
		graph:   g,
		host:    host,
		bus:     bus,
		ctx:     ctx,
		data:    make(map[int32]*path.Data),
		control: make(map[int32]*path.Control),
	}

	for _, n := range g.Nodes {
		if err := reg.Bind(s, n); err != nil {
			return nil, fmt.Errorf("binding graph %q: %w", g.Name, err)
		}
	}

	for _, e := range g.Entries() {
		if !s.ControlPath(e.Out).Declared() {
			return nil, fmt.Errorf("binding graph %q: entry control path %d has no declared body", g.Name, e.Out)
		}
	}

	return s, nil
}

// ID returns the scope id in its canonical 36-character form.
func (s *Scope) ID() string {
	return s.id.String()
}

// Graph returns the document this scope runs.
func (s *Scope) Graph() *graph.Graph {
	return s.graph
}

// Context returns the scope's context, carrying the run logger and the
// cooperative cancellation signal.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// DataPath returns the data path for an edge id, materializing it on first
// query. The same id yields the same path for the scope's whole lifetime.
func (s *Scope) DataPath(id int32) *path.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.data[id]; ok {
		return p
	}
	p := path.NewData(id)
	s.data[id] = p
	return p
}

// ControlPath returns the control path for an edge id, materializing it on
// first query.
func (s *Scope) ControlPath(id int32) *path.Control {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.control[id]; ok {
		return p
	}
	p := path.NewControl(id)
	s.control[id] = p
	return p
}

// PathCount returns how many distinct paths have been materialized.
func (s *Scope) PathCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data) + len(s.control)
}

// Run launches one task per entry node on the runtime host. Entry tasks are
// mutually independent; no ordering between them is guaranteed. A failing
// task terminates only itself; the scope keeps running.
func (s *Scope) Run() {
	logger := ctxlog.FromContext(s.ctx).With("scope_id", s.ID(), "graph", s.graph.Name)
	s.publish(runtime.Event{Type: runtime.EventScopeStarted, ScopeID: s.ID(), Graph: s.graph.Name})

	for _, e := range s.graph.Entries() {
		ctrl := s.ControlPath(e.Out)
		s.tasks.Add(1)
		s.host.Launch(func() {
			defer s.tasks.Done()
			if err := s.invokeEntry(ctrl); err != nil {
				logger.Error("Entry task failed.", "path_id", ctrl.ID(), "error", err)
				s.publish(runtime.Event{Type: runtime.EventTaskFailed, ScopeID: s.ID(), Graph: s.graph.Name, Error: err.Error()})
				return
			}
			s.publish(runtime.Event{Type: runtime.EventTaskSettled, ScopeID: s.ID(), Graph: s.graph.Name})
		})
	}
}

// invokeEntry runs one entry chain, converting a panicking producer or body
// into an ordinary task failure so the scope survives it.
func (s *Scope) invokeEntry(ctrl *path.Control) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("entry task panicked: %v", r)
		}
	}()
	return ctrl.Invoke()
}

// Wait blocks until every task launched by this scope has settled.
func (s *Scope) Wait() {
	s.tasks.Wait()
}

// Stopped publishes the scope's removal from the scope table. In-flight
// tasks keep running until they settle; cancellation stays cooperative.
func (s *Scope) Stopped() {
	s.publish(runtime.Event{Type: runtime.EventScopeStopped, ScopeID: s.ID(), Graph: s.graph.Name})
}

func (s *Scope) publish(e runtime.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}
