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
	// Advance outcomes by result status and failure reason.
	AdvanceOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "program_advance_total",
			Help: "Program progression advance calls by outcome",
		},
		[]string{"status", "reason"}, // reason is empty unless status is "error"
	)

	AdvanceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "program_advance_duration_seconds",
			Help:    "Duration of program progression advance calls",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_events_published_total",
			Help: "Progression events handed to the broker",
		},
		[]string{"routing_key", "status"},
	)

	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAdvance records one advance call.
func RecordAdvance(status, reason string, duration time.Duration) {
	AdvanceOutcomes.WithLabelValues(status, reason).Inc()
	AdvanceDuration.Observe(duration.Seconds())
}

// RecordEventPublished records a publish attempt.
func RecordEventPublished(routingKey string, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	EventsPublished.WithLabelValues(routingKey, status).Inc()
}

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		RequestCounter.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
