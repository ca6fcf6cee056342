// Package metrics wires the pool, launcher, CDP session, and conversion
// facade into a Prometheus registry. A *Registry zero value is safe to use
// (every method is a no-op), so none of the rest of this module needs to
// special-case "metrics not configured".
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every metric this service exposes under a single
// Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	poolSessions    *prometheus.GaugeVec
	poolTotal       prometheus.Gauge
	acquireDuration prometheus.Histogram
	acquireTotal    *prometheus.CounterVec
	evictionsTotal  prometheus.Counter
	launchTotal     *prometheus.CounterVec
	cdpDuration     *prometheus.HistogramVec
	conversionTime  prometheus.Histogram
	conversionTotal *prometheus.CounterVec
}

// New creates and registers every metric under a fresh registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{reg: reg}

	r.poolSessions = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "html2pdf_pool_sessions",
		Help: "Sessions in the pool by state (idle, active, waiting).",
	}, []string{"state"})

	r.poolTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "html2pdf_pool_total_sessions",
		Help: "Total sessions currently owned by the pool.",
	})

	r.acquireDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "html2pdf_pool_acquire_duration_seconds",
		Help:    "Time spent in Pool.Acquire, across all outcomes.",
		Buckets: prometheus.DefBuckets,
	})

	r.acquireTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "html2pdf_pool_acquire_total",
		Help: "Acquire attempts by outcome (success, timeout, pool_closed).",
	}, []string{"outcome"})

	r.evictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "html2pdf_pool_evictions_total",
		Help: "Idle sessions evicted for exceeding the idle timeout.",
	})

	r.launchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "html2pdf_launch_total",
		Help: "Browser launch attempts by outcome.",
	}, []string{"outcome"})

	r.cdpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "html2pdf_cdp_command_duration_seconds",
		Help:    "CDP command round-trip time by method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	r.conversionTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "html2pdf_conversion_duration_seconds",
		Help:    "End-to-end HTML-to-PDF conversion latency.",
		Buckets: prometheus.DefBuckets,
	})

	r.conversionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "html2pdf_conversion_total",
		Help: "Conversions by outcome (success, failure).",
	}, []string{"outcome"})

	reg.MustRegister(
		r.poolSessions, r.poolTotal, r.acquireDuration, r.acquireTotal,
		r.evictionsTotal, r.launchTotal, r.cdpDuration, r.conversionTime,
		r.conversionTotal,
	)

	return r
}

// Gatherer exposes the underlying Prometheus registry for /metrics handlers.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil || r.reg == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

func (r *Registry) SetPoolSessions(idle, active, waiting, total int) {
	if r == nil {
		return
	}
	r.poolSessions.WithLabelValues("idle").Set(float64(idle))
	r.poolSessions.WithLabelValues("active").Set(float64(active))
	r.poolSessions.WithLabelValues("waiting").Set(float64(waiting))
	r.poolTotal.Set(float64(total))
}

func (r *Registry) ObserveAcquire(seconds float64, outcome string) {
	if r == nil {
		return
	}
	r.acquireDuration.Observe(seconds)
	r.acquireTotal.WithLabelValues(outcome).Inc()
}

func (r *Registry) IncEviction() {
	if r == nil {
		return
	}
	r.evictionsTotal.Inc()
}

func (r *Registry) IncLaunch(outcome string) {
	if r == nil {
		return
	}
	r.launchTotal.WithLabelValues(outcome).Inc()
}

func (r *Registry) ObserveCDPCommand(method string, seconds float64) {
	if r == nil {
		return
	}
	r.cdpDuration.WithLabelValues(method).Observe(seconds)
}

func (r *Registry) ObserveConversion(seconds float64, outcome string) {
	if r == nil {
		return
	}
	r.conversionTime.Observe(seconds)
	r.conversionTotal.WithLabelValues(outcome).Inc()
}
