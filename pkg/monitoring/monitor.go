package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 测评尝试相关指标
	AttemptsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evaluation_attempts_started_total",
			Help: "Number of evaluation attempts started",
		},
	)

	AttemptsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_attempts_finalized_total",
			Help: "Number of evaluation attempts that reached a terminal state",
		},
		[]string{"state", "passed"},
	)

	AttemptRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_attempt_rejections_total",
			Help: "Attempt operations rejected by the lifecycle rules",
		},
		[]string{"operation", "reason"},
	)

	ProgressRecomputations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "course_progress_recomputations_total",
			Help: "Number of course progress recomputations",
		},
	)

	ProgressCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_progress_cache_lookups_total",
			Help: "Course progress cache lookups by result",
		},
		[]string{"result"},
	)

	EnrollmentsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enrollments_completed_total",
			Help: "Number of enrollments that reached 100% progress",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(AttemptsStarted)
	prometheus.MustRegister(AttemptsFinalized)
	prometheus.MustRegister(AttemptRejections)
	prometheus.MustRegister(ProgressRecomputations)
	prometheus.MustRegister(ProgressCacheLookups)
	prometheus.MustRegister(EnrollmentsCompleted)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
