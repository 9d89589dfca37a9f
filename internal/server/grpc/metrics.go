package internalgrpc

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	slots    *prometheus.CounterVec
	imports  *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "couponslots",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "couponslots",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		slots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "couponslots",
			Name:      "slot_assignments_total",
			Help:      "Slot assignment attempts by layout context and outcome.",
		}, []string{"context", "outcome"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "couponslots",
			Name:      "import_rows_total",
			Help:      "Uploaded rows by entity and result.",
		}, []string{"entity", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.slots, m.imports,
	)

	return m
}

func (m *metrics) observeRequest(method string, code int, seconds float64) {
	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.latency.WithLabelValues(method).Observe(seconds)
}

func (m *metrics) observeImport(entity string, inserted, dropped int) {
	m.imports.WithLabelValues(entity, "inserted").Add(float64(inserted))
	m.imports.WithLabelValues(entity, "dropped").Add(float64(dropped))
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
