// Package metrics exports retrieval and tool-call metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	retrievalAttempts *prometheus.CounterVec
	retrievalLatency  prometheus.Histogram
	toolCalls         *prometheus.CounterVec
	chatRequests      *prometheus.CounterVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.retrievalAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finance_assistant",
			Subsystem: "knowledge",
			Name:      "attempts_total",
			Help:      "Knowledge base HTTP attempts by outcome",
		},
		[]string{"outcome"},
	)

	r.retrievalLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "finance_assistant",
			Subsystem: "knowledge",
			Name:      "attempt_latency_seconds",
			Help:      "Knowledge base HTTP attempt latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	r.toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finance_assistant",
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Tool invocations by tool and mode",
		},
		[]string{"tool", "mode"},
	)

	r.chatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finance_assistant",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat messages by status",
		},
		[]string{"status"},
	)

	r.registry.MustRegister(r.retrievalAttempts, r.retrievalLatency, r.toolCalls, r.chatRequests)
	return r
}

// ObserveRetrieval records one HTTP attempt against the knowledge base.
func (r *Recorder) ObserveRetrieval(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.retrievalAttempts.WithLabelValues(outcome).Inc()
	r.retrievalLatency.Observe(d.Seconds())
}

// ToolCalled records a tool invocation. mode is "live", "degraded" or "failed".
func (r *Recorder) ToolCalled(tool, mode string) {
	if r == nil {
		return
	}
	r.toolCalls.WithLabelValues(tool, mode).Inc()
}

// ChatHandled records a chat message outcome.
func (r *Recorder) ChatHandled(status string) {
	if r == nil {
		return
	}
	r.chatRequests.WithLabelValues(status).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
