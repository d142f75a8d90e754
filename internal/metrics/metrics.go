// Package metrics exposes the runtime's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the instruments the runtime and service update.
type Metrics struct {
	RunsStarted  prometheus.Counter
	ScopesActive prometheus.Gauge
	TasksSettled prometheus.Counter
	TaskFailures prometheus.Counter
	BindFailures prometheus.Counter
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "flow_runs_started_total",
			Help: "Graph runs started.",
		}),
		ScopesActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "flow_scopes_active",
			Help: "Scopes currently registered in the scope table.",
		}),
		TasksSettled: factory.NewCounter(prometheus.CounterOpts{
			Name: "flow_tasks_settled_total",
			Help: "Entry tasks settled without error.",
		}),
		TaskFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "flow_task_failures_total",
			Help: "Entry tasks terminated by an error.",
		}),
		BindFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "flow_bind_failures_total",
			Help: "Scope constructions aborted by a binding error.",
		}),
	}
}
