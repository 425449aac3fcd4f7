package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "code"},
	)

	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "code"},
	)

	requestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	responseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "response_size_bytes",
			Help:    "Size of HTTP responses in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "route", "code"},
	)

	fetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_fetch_total",
			Help: "Upstream user fetches by result",
		},
		[]string{"result"},
	)

	fetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "profile_fetch_duration_seconds",
			Help:    "Duration of upstream user fetches in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	viewsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "profile_views_active",
			Help: "Number of mounted profile views held in memory",
		},
	)

	viewTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_view_transitions_total",
			Help: "Profile view transitions into a terminal status",
		},
		[]string{"status"},
	)
)

// ObserveFetch records one upstream fetch attempt
func ObserveFetch(err error, d time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	fetchTotal.WithLabelValues(result).Inc()
	fetchDuration.Observe(d.Seconds())
}

// SetViewsActive reports the registry size
func SetViewsActive(n int) {
	viewsActive.Set(float64(n))
}

// ObserveViewTransition counts a view settling into status
func ObserveViewTransition(status string) {
	viewTransitions.WithLabelValues(status).Inc()
}

// shouldCollectMetrics skips probe and scrape traffic so it does not drown
// the user-facing routes.
func shouldCollectMetrics(path string) bool {
	for _, skip := range []string{"/health", "/ready", "/metrics", "/favicon.ico"} {
		if strings.HasPrefix(path, skip) {
			return false
		}
	}
	return true
}

// PrometheusMiddleware records RED metrics per route template. Using
// c.FullPath keeps view ids out of label values.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !shouldCollectMetrics(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		requestsInFlight.Inc()
		defer requestsInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		code := strconv.Itoa(c.Writer.Status())

		requestDuration.WithLabelValues(method, route, code).Observe(time.Since(start).Seconds())
		requestTotal.WithLabelValues(method, route, code).Inc()
		responseSize.WithLabelValues(method, route, code).Observe(float64(c.Writer.Size()))
	}
}
