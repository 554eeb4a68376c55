// Package middleware holds Fiber middleware and the Prometheus collectors it feeds
package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds partitioned by method, route, and status code
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// In-flight HTTP requests
	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	blinksGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blinks_generated_total",
			Help: "Total number of blinks generated and stored",
		},
		[]string{"platform"},
	)

	// Record store operations that degraded to an empty sequence or failed to persist
	blinkStoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blink_store_errors_total",
			Help: "Total number of recovered record store failures",
		},
		[]string{"op"},
	)
)

// Metrics returns a Fiber v3 middleware that records basic Prometheus metrics.
// The matched route template is used as the route label.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}

		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(status),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}

// ObserveBlinkGenerated counts one stored blink for platform
func ObserveBlinkGenerated(platform string) {
	blinksGeneratedTotal.WithLabelValues(platform).Inc()
}

// ObserveStoreError counts one recovered record store failure
func ObserveStoreError(op string, _ error) {
	blinkStoreErrorsTotal.WithLabelValues(op).Inc()
}
