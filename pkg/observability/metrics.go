package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Storage metrics
	StorageErrorsTotal *prometheus.CounterVec

	// Database pool metrics
	DBConnectionsOpen         prometheus.Gauge
	DBConnectionsInUse        prometheus.Gauge
	DBConnectionsIdle         prometheus.Gauge
	DBConnectionsWaitCount    prometheus.Gauge
	DBConnectionsWaitDuration prometheus.Gauge

	// Workflow metrics
	PostStatusTransitionsTotal *prometheus.CounterVec
	CommentModerationTotal     *prometheus.CounterVec
	PermissionDeniedTotal      *prometheus.CounterVec
	IdentitySyncTotal          *prometheus.CounterVec

	// Edge metrics
	RateLimitedTotal    *prometheus.CounterVec
	TokenCacheHitsTotal prometheus.Counter
	TokenCacheMissTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluma_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pluma_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		StorageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluma_storage_errors_total",
				Help: "Total number of classified storage errors",
			},
			[]string{"kind"},
		),
		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pluma_db_connections_open",
			Help: "Number of open database connections",
		}),
		DBConnectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pluma_db_connections_in_use",
			Help: "Number of database connections in use",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pluma_db_connections_idle",
			Help: "Number of idle database connections",
		}),
		DBConnectionsWaitCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pluma_db_connections_wait_count",
			Help: "Total number of connections waited for",
		}),
		DBConnectionsWaitDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pluma_db_connections_wait_duration_seconds",
			Help: "Total time spent waiting for connections",
		}),
		PostStatusTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluma_post_status_transitions_total",
				Help: "Total number of committed post status changes by target status",
			},
			[]string{"target"},
		),
		CommentModerationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluma_comment_moderation_total",
				Help: "Total number of comment moderation decisions",
			},
			[]string{"decision"},
		),
		PermissionDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluma_permission_denied_total",
				Help: "Total number of denied operations",
			},
			[]string{"route"},
		),
		IdentitySyncTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluma_identity_sync_total",
				Help: "Total number of principal synchronizations",
			},
			[]string{"result"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluma_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
		TokenCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pluma_token_cache_hits_total",
			Help: "Verified identity token cache hits",
		}),
		TokenCacheMissTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pluma_token_cache_misses_total",
			Help: "Verified identity token cache misses",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StorageErrorsTotal,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBConnectionsWaitCount,
		m.DBConnectionsWaitDuration,
		m.PostStatusTransitionsTotal,
		m.CommentModerationTotal,
		m.PermissionDeniedTotal,
		m.IdentitySyncTotal,
		m.RateLimitedTotal,
		m.TokenCacheHitsTotal,
		m.TokenCacheMissTotal,
	)

	return m
}

// RecordStatusTransition counts a committed post status change
func (m *Metrics) RecordStatusTransition(target string) {
	if m == nil {
		return
	}
	m.PostStatusTransitionsTotal.WithLabelValues(target).Inc()
}

// RecordModeration counts a comment approve/reject decision
func (m *Metrics) RecordModeration(decision string) {
	if m == nil {
		return
	}
	m.CommentModerationTotal.WithLabelValues(decision).Inc()
}

// RecordPermissionDenied counts a denied operation on a route
func (m *Metrics) RecordPermissionDenied(route string) {
	if m == nil {
		return
	}
	m.PermissionDeniedTotal.WithLabelValues(route).Inc()
}

// RecordStorageError counts a storage error by kind
func (m *Metrics) RecordStorageError(kind string) {
	if m == nil {
		return
	}
	m.StorageErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordIdentitySync counts a principal synchronization (created or updated)
func (m *Metrics) RecordIdentitySync(result string) {
	if m == nil {
		return
	}
	m.IdentitySyncTotal.WithLabelValues(result).Inc()
}

// RecordRateLimited counts a rejected request
func (m *Metrics) RecordRateLimited(route string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(route).Inc()
}

// RecordTokenCache counts a verified-token cache lookup
func (m *Metrics) RecordTokenCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.TokenCacheHitsTotal.Inc()
	} else {
		m.TokenCacheMissTotal.Inc()
	}
}

// UpdateDBStats copies pool statistics into the gauges
func (m *Metrics) UpdateDBStats(stats sql.DBStats) {
	if m == nil {
		return
	}
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	m.DBConnectionsWaitCount.Set(float64(stats.WaitCount))
	m.DBConnectionsWaitDuration.Set(stats.WaitDuration.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RouteLabel returns the mux route template for r, or "unmatched"
func RouteLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Use it as a mux middleware so the route template is known.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := RouteLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
