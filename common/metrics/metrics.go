// Package metrics holds the Prometheus collectors shared by the API server
// and the client-side core.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	queueInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "request_queue",
			Name:      "in_flight",
			Help:      "Tasks currently running in the request queue.",
		},
		[]string{"queue"},
	)

	queueWaiting = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "request_queue",
			Name:      "waiting",
			Help:      "Tasks waiting for a request queue slot.",
		},
		[]string{"queue"},
	)

	imageCacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "image_cache",
			Name:      "events_total",
			Help:      "Image cache hits, misses, downloads, failures and evictions.",
		},
		[]string{"event"},
	)

	imageCacheBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "image_cache",
			Name:      "downloaded_bytes_total",
			Help:      "Bytes written to the image cache.",
		},
	)

	ordersPlaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Orders created by checkout.",
		},
	)

	aiGenerations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "generations_total",
			Help:      "AI generation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "rejected_total",
			Help:      "Requests rejected by the rate limiter.",
		},
		[]string{"class"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		queueInFlight,
		queueWaiting,
		imageCacheEvents,
		imageCacheBytes,
		ordersPlaced,
		aiGenerations,
		rateLimited,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// EchoMiddleware records request count and latency per route template
func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo write the error so the status is final
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := strings.ToUpper(c.Request().Method)
			status := strconv.Itoa(c.Response().Status)

			httpRequests.WithLabelValues(method, route, status).Inc()
			httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// QueueObserver exports request queue occupancy
type QueueObserver struct{}

// QueueChanged implements requestqueue.Observer
func (QueueObserver) QueueChanged(name string, inFlight, waiting int) {
	queueInFlight.WithLabelValues(name).Set(float64(inFlight))
	queueWaiting.WithLabelValues(name).Set(float64(waiting))
}

// ImageCacheObserver exports image cache events
type ImageCacheObserver struct{}

// CacheEvent implements imagecache.Observer
func (ImageCacheObserver) CacheEvent(event string, n int64) {
	if event == "download" {
		imageCacheEvents.WithLabelValues(event).Inc()
		imageCacheBytes.Add(float64(n))
		return
	}
	imageCacheEvents.WithLabelValues(event).Add(float64(n))
}

// RecordOrderPlaced counts a completed checkout
func RecordOrderPlaced() {
	ordersPlaced.Inc()
}

// RecordGeneration counts an AI attempt; outcome is success, quota or error
func RecordGeneration(outcome string) {
	aiGenerations.WithLabelValues(outcome).Inc()
}

// RecordRateLimited counts a rejected request
func RecordRateLimited(class string) {
	rateLimited.WithLabelValues(class).Inc()
}
