package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akeren/waitlist-signup/pkg/utils"
)

const metricsPath = "/metrics"

// metricsEnabled is true unless METRICS_ENABLED parses as false.
func metricsEnabled() bool {
	b, err := strconv.ParseBool(utils.GetEnvTrimmed("METRICS_ENABLED"))
	return err != nil || b
}

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	labels := []string{"method", "route", "status"}
	m := &httpMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, labels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, labels),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *httpMetrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// Unmatched paths share one label so scanners cannot blow up cardinality.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.requests.WithLabelValues(c.Request.Method, route, status).Inc()
		m.duration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}

// mountMetrics serves a private registry on /metrics. Domain collectors
// register through MetricsRegisterer.
func (routerService *RouterService) mountMetrics() {
	if !metricsEnabled() {
		routerService.logger.Info("Metrics disabled (METRICS_ENABLED=false)")
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	routerService.metricsRegistry = reg

	routerService.engine.Use(newHTTPMetrics(reg).middleware())
	routerService.engine.GET(metricsPath, gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	// No CORS for the scrape endpoint.
	routerService.engine.OPTIONS(metricsPath, func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNoContent)
	})

	routerService.logger.Info("Metrics endpoint mounted", "path", metricsPath)
}

// MetricsRegisterer returns the registry served on /metrics, or nil when
// metrics are disabled.
func (routerService *RouterService) MetricsRegisterer() prometheus.Registerer {
	if routerService.metricsRegistry == nil {
		return nil
	}
	return routerService.metricsRegistry
}
