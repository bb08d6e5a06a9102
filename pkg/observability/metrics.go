package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "triage"

// Metrics holds the orchestrator collectors.
type Metrics struct {
	registry *prometheus.Registry

	Transitions  *prometheus.CounterVec
	PortCalls    *prometheus.CounterVec
	PortDuration *prometheus.HistogramVec
	Assessments  *prometheus.CounterVec
	Duration     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them, together with the Go
// and process collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_transitions_total",
				Help:      "Total number of orchestrator stage transitions",
			},
			[]string{"to"},
		),
		PortCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "port_calls_total",
				Help:      "Total number of advisory port calls by outcome",
			},
			[]string{"port", "result"},
		),
		PortDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "port_call_duration_seconds",
				Help:      "Duration of advisory port calls, retries included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"port"},
		),
		Assessments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assessments_total",
				Help:      "Total number of completed assessments",
			},
			[]string{"decision", "terminal", "reason"},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "assessment_duration_seconds",
				Help:      "Duration of assessments from intake to terminal stage",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
	m.registry.MustRegister(
		m.Transitions, m.PortCalls, m.PortDuration, m.Assessments, m.Duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.StageEvent) {
			m.Transitions.WithLabelValues(string(e.To)).Inc()
		},
		OnPortCall: func(_ context.Context, e *domain.PortEvent) {
			result := "ok"
			if e.Failure != "" {
				result = string(e.Failure)
			}
			m.PortCalls.WithLabelValues(e.Port, result).Inc()
			m.PortDuration.WithLabelValues(e.Port).Observe(e.Duration.Seconds())
		},
		OnComplete: func(_ context.Context, e *domain.CompletionEvent) {
			m.Assessments.WithLabelValues(string(e.Decision), string(e.Terminal), string(e.Reason)).Inc()
			m.Duration.Observe(e.Duration.Seconds())
		},
	}
}
