// Package app wires the engine together: logger, catalog, executor
// registry, runtime host, scope table, metrics and the HTTP service.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/valaphee/flow/internal/catalog"
	"github.com/valaphee/flow/internal/ctxlog"
	"github.com/valaphee/flow/internal/exec"
	"github.com/valaphee/flow/internal/metrics"
	"github.com/valaphee/flow/internal/runtime"
	"github.com/valaphee/flow/internal/scope"
	"github.com/valaphee/flow/internal/scopestore"
	"github.com/valaphee/flow/internal/service"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	StorePath string
	Listen    string
	LogFormat string
	LogLevel  string
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *exec.Registry
	catalog  *catalog.Store
	host     *runtime.Host
	bus      *runtime.Bus
	scopes   *scopestore.Store
	metrics  *metrics.Metrics
	promReg  *prometheus.Registry
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry. With
// no modules given, the core module set is registered.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config, mods ...exec.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	registry := exec.New()
	if len(mods) == 0 {
		mods = coreModules()
	}
	for _, m := range mods {
		m.Register(registry)
	}
	logger.Debug("All node modules registered.", "count", len(mods), "kinds", len(registry.Specs()))

	cat, err := catalog.Open(ctx, cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	promReg := prometheus.NewRegistry()
	a := &App{
		outW:     outW,
		logger:   logger,
		registry: registry,
		catalog:  cat,
		host:     runtime.NewHost(ctx),
		bus:      runtime.NewBus(),
		scopes:   scopestore.New(),
		metrics:  metrics.New(promReg),
		promReg:  promReg,
	}
	go a.observeEvents()
	return a, nil
}

// Catalog returns the application's graph catalog.
func (a *App) Catalog() *catalog.Store {
	return a.catalog
}

// Registry returns the application's executor registry. This is primarily
// for testing.
func (a *App) Registry() *exec.Registry {
	return a.registry
}

// RunGraph allocates and starts a scope over the named graph, registers it
// in the scope table and returns its id.
func (a *App) RunGraph(name string) (string, error) {
	g, ok := a.catalog.Lookup(name)
	if !ok {
		return "", fmt.Errorf("graph %q: %w", name, catalog.ErrNotFound)
	}

	ctx := ctxlog.WithLogger(a.host.Context(), a.logger)
	sc, err := scope.New(ctx, g, a.registry, a.host, a.bus)
	if err != nil {
		a.metrics.BindFailures.Inc()
		return "", err
	}

	a.scopes.Add(sc)
	a.metrics.RunsStarted.Inc()
	a.metrics.ScopesActive.Inc()
	a.logger.Info("▶️ Scope started.", "scope_id", sc.ID(), "graph", g.Name)
	sc.Run()
	return sc.ID(), nil
}

// StopScope deregisters a scope. Its in-flight tasks keep running until
// they settle; cancellation stays cooperative.
func (a *App) StopScope(id string) error {
	sc, ok := a.scopes.Remove(id)
	if !ok {
		return fmt.Errorf("scope %q not registered", id)
	}
	a.metrics.ScopesActive.Dec()
	sc.Stopped()
	a.logger.Info("⏹️ Scope stopped.", "scope_id", id, "graph", sc.Graph().Name)
	return nil
}

// Scopes lists the running scopes for the service boundary.
func (a *App) Scopes() []service.ScopeInfo {
	snapshot := a.scopes.Snapshot()
	out := make([]service.ScopeInfo, 0, len(snapshot))
	for _, sc := range snapshot {
		out = append(out, service.ScopeInfo{ID: sc.ID(), Graph: sc.Graph().Name})
	}
	return out
}

// RunOnce starts the named graph and blocks until every task has settled,
// for one-shot command line runs.
func (a *App) RunOnce(name string) error {
	id, err := a.RunGraph(name)
	if err != nil {
		return err
	}
	sc, ok := a.scopes.Get(id)
	if !ok {
		return fmt.Errorf("scope %q vanished", id)
	}
	sc.Wait()
	return a.StopScope(id)
}

// Shutdown signals cooperative cancellation and waits for every task to
// settle.
func (a *App) Shutdown() {
	a.host.Shutdown()
}

// observeEvents keeps the task metrics in sync with the run event stream.
func (a *App) observeEvents() {
	events, cancel := a.bus.Subscribe()
	defer cancel()
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			switch e.Type {
			case runtime.EventTaskSettled:
				a.metrics.TasksSettled.Inc()
			case runtime.EventTaskFailed:
				a.metrics.TaskFailures.Inc()
			}
		case <-a.host.Context().Done():
			return
		}
	}
}
