package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks inbound request latency per route.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	httpMetricsOnce sync.Once
	httpMetrics     *HTTPMetrics
)

func NewHTTPMetrics(cfg Config) *HTTPMetrics {
	httpMetricsOnce.Do(func() {
		httpMetrics = newHTTPMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return httpMetrics
}

func newHTTPMetrics(registerer prometheus.Registerer, cfg Config) *HTTPMetrics {
	constLabels := constLabelsFor(cfg)
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "coursepulse_http_requests_total",
			Help:        "HTTP requests by route and status code.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status_code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "coursepulse_http_request_duration_seconds",
			Help:        "HTTP request latency by route.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "route"}),
	}
	registerer.MustRegister(m.requests, m.latency)
	return m
}

// GinMiddleware observes every request that matched a route.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
