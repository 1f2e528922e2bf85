package http

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// Metrics collects engine and request counters for Prometheus scraping.
// One instance is shared between the engine (via Hooks) and the router
// (via Middleware and Handler).
type Metrics struct {
	registry *prometheus.Registry

	flowRuns       *prometheus.CounterVec
	stepExecutions *prometheus.CounterVec
	actions        *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics with its own registry, so tests can run
// several servers without duplicate registration panics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		flowRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grimoire_flow_runs_total",
			Help: "Completed flow executions by flow id and result.",
		}, []string{"flow", "result"}),
		stepExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grimoire_step_executions_total",
			Help: "Completed flow steps by flow id and step type.",
		}, []string{"flow", "type"}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grimoire_actions_total",
			Help: "Dispatched step actions by action name.",
		}, []string{"action"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grimoire_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grimoire_http_request_duration_seconds",
			Help:    "HTTP request latency by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Hooks returns engine lifecycle hooks that feed the flow counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepComplete: func(_ context.Context, e *domain.StepEvent) {
			m.stepExecutions.WithLabelValues(e.FlowID, e.StepType).Inc()
		},
		OnActionExecute: func(_ context.Context, e *domain.ActionEvent) {
			m.actions.WithLabelValues(e.Action).Inc()
		},
		OnFlowComplete: func(_ context.Context, e *domain.FlowEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.flowRuns.WithLabelValues(e.FlowID, result).Inc()
		},
	}
}

// Middleware instruments every request with the counter and latency
// histogram. Labels stay at method and code to keep cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(m.httpDuration,
		promhttp.InstrumentHandlerCounter(m.httpRequests, next))
}

// Handler serves the scrape endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
