package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// NormalizeDuration tracks how long image normalization takes
	NormalizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storefront_image_normalize_duration_seconds",
			Help:    "Image normalization duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// NormalizeTotal counts normalizations by outcome (ok, decode_failed, encode_failed, canceled, superseded)
	NormalizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_image_normalize_total",
			Help: "Total number of image normalizations by outcome",
		},
		[]string{"outcome"},
	)

	// OrdersTotal counts created orders
	OrdersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Total number of orders placed",
		},
	)

	// OrderAmount tracks order totals in GHS
	OrderAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storefront_order_amount_ghs",
			Help:    "Order totals in GHS",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 5000},
		},
	)

	// OutboxPublished counts outbox events by result (published, failed)
	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_outbox_events_total",
			Help: "Total number of outbox events handled by the poller",
		},
		[]string{"result"},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"circuit_name"},
	)

	// CartCacheResults counts cart cache lookups by result (hit, miss, error)
	CartCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_cache_total",
			Help: "Cart cache lookups by result",
		},
		[]string{"result"},
	)
)

// Middleware records request count and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
