// Package metrics provides Prometheus instrumentation for the storefront.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CheckoutsTotal counts checkout runs by result (completed, rejected).
	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fastclick_checkouts_total",
		Help: "Total checkout runs",
	}, []string{"result"})

	// CheckoutItemsTotal counts basket entries processed by outcome.
	CheckoutItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fastclick_checkout_items_total",
		Help: "Basket entries processed during checkout",
	}, []string{"outcome"})

	// StockConflicts counts conditional decrements that lost a race.
	StockConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fastclick_stock_conflicts_total",
		Help: "Conditional stock decrements rejected because stock changed",
	})

	// SessionOpen is 1 while a session is open.
	SessionOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fastclick_session_open",
		Help: "1 while a sale session is open",
	})

	// StatementRecomputeDuration tracks financial recompute latency by scope kind.
	StatementRecomputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fastclick_statement_recompute_seconds",
		Help:    "Financial statement recompute duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"scope"})

	// WebSocketClients tracks connected session countdown clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fastclick_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// JobsTotal counts worker jobs by queue and result.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fastclick_jobs_total",
		Help: "Worker jobs processed",
	}, []string{"queue", "result"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fastclick_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fastclick_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request metrics. The route pattern is used as the path
// label to keep cardinality bounded.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
