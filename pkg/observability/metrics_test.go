package observability

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Recorders(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordStatusTransition("publicado")
	m.RecordStatusTransition("publicado")
	m.RecordModeration("aprobado")
	m.RecordPermissionDenied("/api/posts")
	m.RecordStorageError("query_failed")
	m.RecordIdentitySync("created")
	m.RecordRateLimited("/api/comments")
	m.RecordTokenCache(true)
	m.RecordTokenCache(false)
	m.RecordTokenCache(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PostStatusTransitionsTotal.WithLabelValues("publicado")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommentModerationTotal.WithLabelValues("aprobado")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PermissionDeniedTotal.WithLabelValues("/api/posts")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageErrorsTotal.WithLabelValues("query_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IdentitySyncTotal.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitedTotal.WithLabelValues("/api/comments")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenCacheHitsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokenCacheMissTotal))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordStatusTransition("borrador")
		m.RecordModeration("rechazado")
		m.UpdateDBStats(sql.DBStats{})
		m.RecordTokenCache(true)
	})
}

func TestMetrics_UpdateDBStats(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.UpdateDBStats(sql.DBStats{OpenConnections: 5, InUse: 3, Idle: 2, WaitCount: 9, WaitDuration: 2 * time.Second})

	assert.Equal(t, 5.0, testutil.ToFloat64(m.DBConnectionsOpen))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DBConnectionsInUse))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DBConnectionsIdle))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.DBConnectionsWaitCount))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DBConnectionsWaitDuration))
}

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(m))
	router.HandleFunc("/api/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/posts/{id}", "404")))
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.RecordStatusTransition("archivado")

	sm := http.NewServeMux()
	RegisterMetricsEndpoint(sm, registry)

	rec := httptest.NewRecorder()
	sm.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pluma_post_status_transitions_total{target="archivado"} 1`)
}
