// Package metrics provides Prometheus instrumentation for the BatteryFi service.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BackendFetches counts view fetches by collection and outcome ("ok", "error").
	BackendFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batteryfi_backend_fetches_total",
		Help: "Collection fetches issued by views",
	}, []string{"collection", "outcome"})

	// BackendFetchLatency tracks fetch latency by collection.
	BackendFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batteryfi_backend_fetch_latency_seconds",
		Help:    "Collection fetch latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})

	// Notifications counts user notifications by variant.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batteryfi_notifications_total",
		Help: "User notifications emitted",
	}, []string{"variant"})

	// StakeRejections counts stake submissions rejected by validation.
	StakeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batteryfi_stake_rejections_total",
		Help: "Stake submissions rejected before any side effect",
	}, []string{"reason"})

	// WalletConnections counts wallet connect attempts by resulting state.
	WalletConnections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batteryfi_wallet_connections_total",
		Help: "Wallet connect attempts by outcome",
	}, []string{"outcome"})

	// WebSocketClients tracks connected dashboard WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "batteryfi_websocket_clients",
		Help: "Number of connected dashboard WebSocket clients",
	})

	// BatterySoC exposes the simulated battery state of charge.
	BatterySoC = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "batteryfi_battery_soc_percent",
		Help: "Simulated battery state of charge",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batteryfi_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batteryfi_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// ObserveFetch records one collection fetch started at start.
func ObserveFetch(collection string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	BackendFetches.WithLabelValues(collection, outcome).Inc()
	BackendFetchLatency.WithLabelValues(collection).Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route pattern keeps the label cardinality bounded.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the dashboard WebSocket upgrade pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}
