// Package metrics exposes chart and collector counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reqchart"

// Recorder owns a private registry. A nil *Recorder discards observations.
type Recorder struct {
	registry *prometheus.Registry

	renders        *prometheus.CounterVec
	renderSeconds  prometheus.Histogram
	rejected       *prometheus.CounterVec
	resizeSignals  *prometheus.CounterVec
	syncs          *prometheus.CounterVec
	storedMonths   prometheus.Gauge
	activeSessions prometheus.Gauge
}

// New creates a recorder with Go and process collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Number of chart renders, by surface",
		}, []string{"surface"}),
		renderSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent computing and drawing a chart",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_samples_total",
			Help:      "Counter samples rejected during validation, by reason",
		}, []string{"reason"}),
		resizeSignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resize_signals_total",
			Help:      "Resize signals received, split by whether a pending render absorbed them",
		}, []string{"outcome"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collector_syncs_total",
			Help:      "Collector sync attempts, by result",
		}, []string{"result"}),
		storedMonths: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_months",
			Help:      "Months currently held in the counter store",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Mounted chart sessions",
		}),
	}

	r.registry.MustRegister(collectors.NewGoCollector())
	r.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.registry.MustRegister(r.renders, r.renderSeconds, r.rejected, r.resizeSignals,
		r.syncs, r.storedMonths, r.activeSessions)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveRender counts one render on surface ("svg", "session", "tui").
func (r *Recorder) ObserveRender(surface string, seconds float64) {
	if r == nil {
		return
	}
	r.renders.WithLabelValues(surface).Inc()
	r.renderSeconds.Observe(seconds)
}

// ObserveRejected counts a rejected sample.
func (r *Recorder) ObserveRejected(reason string) {
	if r == nil {
		return
	}
	r.rejected.WithLabelValues(reason).Inc()
}

// ObserveResizeSignal counts a resize signal. coalesced means a pending
// render absorbed it.
func (r *Recorder) ObserveResizeSignal(coalesced bool) {
	if r == nil {
		return
	}
	outcome := "scheduled"
	if coalesced {
		outcome = "coalesced"
	}
	r.resizeSignals.WithLabelValues(outcome).Inc()
}

// ObserveSync counts a collector sync.
func (r *Recorder) ObserveSync(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.syncs.WithLabelValues(result).Inc()
}

// SetStoredMonths records the store size.
func (r *Recorder) SetStoredMonths(n int64) {
	if r == nil {
		return
	}
	r.storedMonths.Set(float64(n))
}

// SetActiveSessions records the number of mounted sessions.
func (r *Recorder) SetActiveSessions(n int) {
	if r == nil {
		return
	}
	r.activeSessions.Set(float64(n))
}
