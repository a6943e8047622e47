package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	HTTPRequests  *prometheus.CounterVec
	HTTPLatency   *prometheus.HistogramVec
	Errors        *prometheus.CounterVec
	CacheLookups  *prometheus.CounterVec
	WarModeActive prometheus.Gauge
	WarModeLevel  prometheus.Gauge
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by method, route and status code.",
			}, []string{"method", "route", "status"}),
			HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency distribution for HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "route"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
			CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Read-through cache lookups by key and result.",
			}, []string{"key", "result"}),
			WarModeActive: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "war_mode_active",
				Help:      "1 while war mode is active.",
			}),
			WarModeLevel: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "war_mode_level",
				Help:      "Current war mode level.",
			}),
		}

		prometheus.MustRegister(
			metricsInstance.HTTPRequests,
			metricsInstance.HTTPLatency,
			metricsInstance.Errors,
			metricsInstance.CacheLookups,
			metricsInstance.WarModeActive,
			metricsInstance.WarModeLevel,
		)
	})
	return metricsInstance
}

// ObserveWarMode mirrors the war mode singleton into the gauges.
func (m *Metrics) ObserveWarMode(active bool, level int) {
	if m == nil {
		return
	}
	if active {
		m.WarModeActive.Set(1)
	} else {
		m.WarModeActive.Set(0)
	}
	m.WarModeLevel.Set(float64(level))
}

// IncError bumps the error counter for a component.
func (m *Metrics) IncError(component string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(component).Inc()
}
