package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder publishes Prometheus metrics for gateway calls and toast flushes.
type Recorder struct {
	gatherer prometheus.Gatherer
	handler  http.Handler

	calls       *prometheus.CounterVec
	callLatency *prometheus.HistogramVec

	flushes *prometheus.CounterVec
	toasts  *prometheus.CounterVec
}

// NewRecorder constructs a Prometheus-backed Recorder. When reg is nil a dedicated
// registry is created so multiple recorders can coexist without conflicting with
// the global default registerer.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callgate",
		Subsystem: "gateway",
		Name:      "calls_total",
		Help:      "Total gateway calls by method, prefix and outcome.",
	}, []string{"method", "prefix", "outcome"})

	callLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "callgate",
		Subsystem: "gateway",
		Name:      "call_duration_seconds",
		Help:      "Latency distribution for completed gateway calls.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method", "outcome"})

	flushes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callgate",
		Subsystem: "notifier",
		Name:      "flushes_total",
		Help:      "Notification windows flushed, split by whether any toast failed.",
	}, []string{"result"})

	toasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callgate",
		Subsystem: "notifier",
		Name:      "toasts_total",
		Help:      "Toasts handed to the sinks.",
	}, []string{"result"})

	reg.MustRegister(calls, callLatency, flushes, toasts)

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return &Recorder{
		gatherer:    reg,
		handler:     handler,
		calls:       calls,
		callLatency: callLatency,
		flushes:     flushes,
		toasts:      toasts,
	}
}

// Handler exposes the Prometheus HTTP handler for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

// Gatherer returns the underlying Prometheus gatherer.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.gatherer
}

// ObserveCall records the outcome and latency of a gateway call.
func (r *Recorder) ObserveCall(method, prefix, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	methodLabel := strings.ToUpper(normalizeLabel(method))
	outcomeLabel := normalizeLabel(outcome)
	r.calls.WithLabelValues(methodLabel, normalizeLabel(prefix), outcomeLabel).Inc()
	r.callLatency.WithLabelValues(methodLabel, outcomeLabel).Observe(elapsed.Seconds())
}

// ObserveFlush records one drained notification window.
func (r *Recorder) ObserveFlush(shown, failed int) {
	if r == nil {
		return
	}
	r.flushes.WithLabelValues(flushResult(shown, failed)).Inc()
	if shown > 0 {
		r.toasts.WithLabelValues("shown").Add(float64(shown))
	}
	if failed > 0 {
		r.toasts.WithLabelValues("failed").Add(float64(failed))
	}
}

func flushResult(shown, failed int) string {
	switch {
	case failed == 0:
		return "ok"
	case shown == 0:
		return "failed"
	default:
		return "partial"
	}
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
