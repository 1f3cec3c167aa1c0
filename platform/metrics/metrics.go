// Package metrics provides Prometheus instrumentation for the HTTP layer and
// the raw-lead pipeline counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	rawLeadsIngested    prometheus.Counter
	duplicatesSkipped   prometheus.Counter
	rawLeadsAssigned    prometheus.Counter
	rawLeadsRemoved     prometheus.Counter
	rawLeadsConverted   prometheus.Counter
	conversionRacesLost prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		rawLeadsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "rawleads_ingested_total",
			Help: "Raw leads inserted by bulk ingestion",
		}),
		duplicatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "rawleads_duplicates_skipped_total",
			Help: "Ingested items skipped because the phone already existed",
		}),
		rawLeadsAssigned: factory.NewCounter(prometheus.CounterOpts{
			Name: "rawleads_assigned_total",
			Help: "Raw leads whose assignee was overwritten by bulk assignment",
		}),
		rawLeadsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "rawleads_removed_total",
			Help: "Raw leads deleted",
		}),
		rawLeadsConverted: factory.NewCounter(prometheus.CounterOpts{
			Name: "rawleads_converted_total",
			Help: "Raw leads promoted into cold CRM leads",
		}),
		conversionRacesLost: factory.NewCounter(prometheus.CounterOpts{
			Name: "rawleads_conversion_races_total",
			Help: "Conversion attempts that found the raw lead already linked",
		}),
	}
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordIngestion counts one bulk upload outcome.
func (m *Metrics) RecordIngestion(inserted, skipped int) {
	m.rawLeadsIngested.Add(float64(inserted))
	m.duplicatesSkipped.Add(float64(skipped))
}

// RecordAssignment counts reassigned raw leads.
func (m *Metrics) RecordAssignment(updated int) {
	m.rawLeadsAssigned.Add(float64(updated))
}

// RecordRemoval counts deleted raw leads.
func (m *Metrics) RecordRemoval(deleted int) {
	m.rawLeadsRemoved.Add(float64(deleted))
}

// RecordConversion counts a successful promotion.
func (m *Metrics) RecordConversion() {
	m.rawLeadsConverted.Inc()
}

// RecordConversionRaceLost counts a conversion claim that lost to another writer.
func (m *Metrics) RecordConversionRaceLost() {
	m.conversionRacesLost.Inc()
}
