package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/viralforge/affiliate-core/internal/ports"
)

// Metrics owns its own registry so several instances can coexist in one
// process.
type Metrics struct {
	registry *prometheus.Registry

	clicks       *prometheus.CounterVec
	conversions  *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		clicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "clicks_total",
				Help:      "Affiliate link clicks by outcome.",
			},
			[]string{"outcome"},
		),
		conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Conversion reports by outcome.",
			},
			[]string{"outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversion_status_transitions_total",
				Help:      "Conversion status changes.",
			},
			[]string{"from", "to"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	m.registry.MustRegister(
		m.clicks, m.conversions, m.transitions, m.httpRequests, m.httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ClickRecorded(outcome string) {
	m.clicks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ConversionRecorded(outcome string) {
	m.conversions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StatusTransitioned(from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var _ ports.Metrics = (*Metrics)(nil)
