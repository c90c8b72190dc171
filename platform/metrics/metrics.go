// Package metrics exposes Prometheus collectors for HTTP traffic and the
// lead engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of in-flight HTTP requests",
		},
	)

	leadsDistributed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_distributed_total",
			Help: "Total number of leads given an owner, by operation",
		},
		[]string{"operation", "outcome"},
	)

	leadStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_status_changes_total",
			Help: "Total number of lead status transitions, by target status",
		},
		[]string{"status"},
	)

	leadsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_imported_total",
			Help: "Total number of imported rows, by result",
		},
		[]string{"result"},
	)
)

// Middleware records request count and latency. The route template is used
// as the path label so that ids do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		activeRequests.Inc()
		defer activeRequests.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordDistribution counts leads that went through a distribution path.
// outcome is "assigned" or "unassigned".
func RecordDistribution(operation, outcome string, count int) {
	if count <= 0 {
		return
	}
	leadsDistributed.WithLabelValues(operation, outcome).Add(float64(count))
}

func RecordStatusChange(status string) {
	leadStatusChanges.WithLabelValues(status).Inc()
}

func RecordImport(result string, count int) {
	if count <= 0 {
		return
	}
	leadsImported.WithLabelValues(result).Add(float64(count))
}
