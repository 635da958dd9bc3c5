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
	// BookingsCreated counts bookings that reached PENDING.
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kinobook_bookings_created_total",
		Help: "Number of bookings created.",
	})

	// BookingFailures counts rejected booking attempts by reason.
	BookingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinobook_booking_failures_total",
		Help: "Number of failed booking attempts by reason.",
	}, []string{"reason"})

	// Payments counts terminal payment attempts by outcome.
	Payments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinobook_payments_total",
		Help: "Number of payment attempts by outcome.",
	}, []string{"outcome"})

	// Compensations counts compensating actions by kind. This should stay
	// near zero; a climb means collaborators are failing mid-saga.
	Compensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinobook_compensations_total",
		Help: "Number of compensating actions executed by kind.",
	}, []string{"kind"})

	// SagaDuration observes end-to-end saga latency.
	SagaDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kinobook_saga_duration_seconds",
		Help:    "Duration of saga executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"saga"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinobook_http_requests_total",
		Help: "Number of HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kinobook_http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Handler returns the /metrics endpoint handler.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// Middleware records per-request HTTP metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequests.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}

// ObserveSaga records the duration of one saga run.
func ObserveSaga(saga string, start time.Time) {
	SagaDuration.WithLabelValues(saga).Observe(time.Since(start).Seconds())
}
