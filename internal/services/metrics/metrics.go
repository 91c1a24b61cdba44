package metrics

import (
	"fmt"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const divisor = 100

// Metrics holds Prometheus metric vectors for the forecast service.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ForecastRequestsTotal prometheus.Counter
	ForecastErrorsTotal   *prometheus.CounterVec
	BreakerState          *prometheus.GaugeVec
}

// NewMetrics constructs all service metrics and registers them on reg.
func NewMetrics(serviceName string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests received",
			},
			[]string{"method", "endpoint", "status_class"},
		),

		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: serviceName,
				Name:      "http_request_duration_seconds",
				Help:      "Histogram of HTTP request latencies",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		ForecastRequestsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Name:      "forecast_requests_total",
				Help:      "Total number of forecast requests",
			},
		),

		ForecastErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Name:      "forecast_errors_total",
				Help:      "Total number of forecast requests answered with an error",
			},
			[]string{"error_type"},
		),

		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: serviceName,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ForecastRequestsTotal,
		m.ForecastErrorsTotal,
		m.BreakerState,
		collectors.NewGoCollector(
			collectors.WithGoCollectorRuntimeMetrics(
				collectors.GoRuntimeMetricsRule{Matcher: regexp.MustCompile("/sched/latencies:seconds")},
			),
		),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// HTTPMiddleware returns a Gin middleware to instrument HTTP endpoints.
func (m *Metrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		d := time.Since(start)

		status := c.Writer.Status()
		statusClass := getStatusClass(status)

		m.HTTPRequestsTotal.With(prometheus.Labels{
			"method":       c.Request.Method,
			"endpoint":     c.FullPath(),
			"status_class": statusClass,
		}).Inc()
		m.HTTPRequestDuration.With(prometheus.Labels{
			"method":   c.Request.Method,
			"endpoint": c.FullPath(),
		}).Observe(d.Seconds())
	}
}

// ForecastMiddleware counts forecast requests and their error outcomes. It is
// mounted on the forecast route only.
func (m *Metrics) ForecastMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		m.ForecastRequestsTotal.Inc()
		switch getStatusClass(c.Writer.Status()) {
		case "4xx":
			m.ForecastErrorsTotal.WithLabelValues("client_error").Inc()
		case "5xx":
			m.ForecastErrorsTotal.WithLabelValues("server_error").Inc()
		}
	}
}

// SetBreakerState records the state of the named circuit breaker.
func (m *Metrics) SetBreakerState(name string, state int) {
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

func getStatusClass(code int) string {
	return fmt.Sprintf("%dxx", code/divisor)
}
