package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeFallback = "fallback"
)

// Metrics holds every collector netpilot exports. It is safe for concurrent use.
type Metrics struct {
	fetchTotal    *prometheus.CounterVec
	fetchDuration prometheus.ObserverVec
	mismatches    *prometheus.CounterVec
	verifications *prometheus.CounterVec
	routing       *prometheus.CounterVec
	toolCalls     *prometheus.CounterVec
	toolDuration  prometheus.ObserverVec
}

// New registers the collectors on reg. A nil reg gets a private registry so
// tests and one-shot commands never touch the default one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	m := &Metrics{
		fetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netpilot_source_fetch_total",
			Help: "Number of inventory source fetches.",
		}, []string{"source", "outcome"}),
		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "netpilot_source_fetch_duration_seconds",
			Help:    "Duration of inventory source fetches.",
			Buckets: prometheus.ExponentialBuckets(.01, 2, 12),
		}, []string{"source", "outcome"}),
		mismatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netpilot_mismatches_total",
			Help: "Number of mismatches found by reconciliation.",
		}, []string{"field", "severity"}),
		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netpilot_verifications_total",
			Help: "Number of live identity checks by outcome.",
		}, []string{"outcome"}),
		routing: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netpilot_routing_decisions_total",
			Help: "Number of routed queries.",
		}, []string{"intent", "fallback"}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netpilot_tool_calls_total",
			Help: "Number of tool invocations.",
		}, []string{"tool", "outcome"}),
		toolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "netpilot_tool_call_duration_seconds",
			Help:    "Duration of tool invocations.",
			Buckets: prometheus.LinearBuckets(.05, .25, 10),
		}, []string{"tool"}),
	}

	labels := []prometheus.Labels{
		{"source": "local", "outcome": OutcomeOK},
		{"source": "local", "outcome": OutcomeError},
		{"source": "remote", "outcome": OutcomeOK},
		{"source": "remote", "outcome": OutcomeError},
		{"source": "remote", "outcome": OutcomeFallback},
	}
	initCounterLabels(m.fetchTotal, labels)
	initObserverLabels(m.fetchDuration, labels)

	return m
}

// ObserveFetch records one source fetch
func (m *Metrics) ObserveFetch(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"source": source, "outcome": outcome}
	m.fetchTotal.With(labels).Inc()
	m.fetchDuration.With(labels).Observe(d.Seconds())
}

// Mismatch counts one reconciliation mismatch
func (m *Metrics) Mismatch(field, severity string) {
	if m == nil {
		return
	}
	m.mismatches.WithLabelValues(field, severity).Inc()
}

// Verification counts one identity check outcome
func (m *Metrics) Verification(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

// Routed counts one routing decision
func (m *Metrics) Routed(intent string, fallback bool) {
	if m == nil {
		return
	}
	f := "false"
	if fallback {
		f = "true"
	}
	m.routing.WithLabelValues(intent, f).Inc()
}

// ToolCall records one tool invocation
func (m *Metrics) ToolCall(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

func initObserverLabels(m prometheus.ObserverVec, l []prometheus.Labels) {
	for _, labels := range l {
		m.With(labels)
	}
}

func initCounterLabels(m *prometheus.CounterVec, l []prometheus.Labels) {
	for _, labels := range l {
		m.With(labels)
	}
}
