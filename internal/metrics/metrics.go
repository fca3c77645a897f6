// Package metrics provides Prometheus metrics for placement runs and the
// HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks HTTP request duration by method, path, and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridcut_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)

	// HTTPRequestTotal tracks total HTTP requests by method, path, and status code.
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridcut_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	// PlacementSearchesTotal counts policy invocations by outcome ("placed" or "none").
	PlacementSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridcut_placement_searches_total",
			Help: "Total number of placement searches",
		},
		[]string{"outcome"},
	)

	// PlacementSearchDuration tracks how long a single search takes.
	PlacementSearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridcut_placement_search_duration_seconds",
			Help:    "Placement search duration in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
	)

	// PlacedCellsTotal counts cells claimed by placed pieces.
	PlacedCellsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridcut_placed_cells_total",
			Help: "Total number of stock cells claimed by placed pieces",
		},
	)

	// RunsTotal counts completed runs by stop reason.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridcut_runs_total",
			Help: "Total number of placement runs",
		},
		[]string{"reason"},
	)
)

// PrometheusMiddleware returns a Gin middleware that collects HTTP metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(duration)
		HTTPRequestTotal.WithLabelValues(method, path, statusCode).Inc()
	}
}

// RecordSearch records the outcome of one placement search.
func RecordSearch(duration time.Duration, placed bool, cells int) {
	PlacementSearchDuration.Observe(duration.Seconds())
	if placed {
		PlacementSearchesTotal.WithLabelValues("placed").Inc()
		PlacedCellsTotal.Add(float64(cells))
		return
	}
	PlacementSearchesTotal.WithLabelValues("none").Inc()
}

// RecordRun records a finished run and why it stopped.
func RecordRun(reason string) {
	RunsTotal.WithLabelValues(reason).Inc()
}

// WriteTextfile dumps the default registry in the text exposition format,
// for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
