package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/platinummonkey/pluma/pkg/apperr"
	"github.com/platinummonkey/pluma/pkg/audit"
	"github.com/platinummonkey/pluma/pkg/middleware"
	"github.com/platinummonkey/pluma/pkg/observability"
	"github.com/platinummonkey/pluma/pkg/rbac"
	"github.com/platinummonkey/pluma/pkg/sso"
	"github.com/platinummonkey/pluma/pkg/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenVerifier map[string]sso.ExternalUser

func (v tokenVerifier) Verify(ctx context.Context, raw string) (*sso.ExternalUser, error) {
	if u, ok := v[raw]; ok {
		return &u, nil
	}
	return nil, errors.New("invalid token")
}

type noSync struct{}

func (noSync) SyncPrincipal(ctx context.Context, ext sso.ExternalUser) (*users.User, bool, error) {
	return nil, false, errors.New("unexpected sync")
}

type principals map[string]*rbac.Principal

func (p principals) LoadByExternalID(ctx context.Context, externalID string) (*rbac.Principal, error) {
	if principal, ok := p[externalID]; ok {
		return principal, nil
	}
	return nil, apperr.NotFound("user", externalID)
}

func (p principals) LoadByUserID(ctx context.Context, userID int64) (*rbac.Principal, error) {
	return nil, apperr.NotFound("user", userID)
}

type auditSearcher struct{}

func (auditSearcher) Search(ctx context.Context, filter audit.SearchFilter) ([]*audit.AuditEvent, error) {
	return []*audit.AuditEvent{}, nil
}

func newTestHandler(t *testing.T) (http.Handler, *observability.Metrics) {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	rateLimit := &middleware.RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}

	auth := middleware.NewAuthMiddleware(
		tokenVerifier{
			"admin-token":  {ExternalID: "idp|admin"},
			"author-token": {ExternalID: "idp|author"},
		},
		noSync{},
		principals{
			"idp|admin":  rbac.NewPrincipal(1, 1, rbac.RoleAdministrator, rbac.AllPermissions()),
			"idp|author": rbac.NewPrincipal(2, 3, rbac.RoleAuthor, rbac.BuiltInRoles()[2].Permissions),
		},
	)

	handler := newHandler(routerDeps{
		DB:          db,
		Logger:      observability.NewLogger(observability.ErrorLevel, io.Discard),
		Metrics:     metrics,
		AuditLogger: audit.NoOpLogger{},
		AuditStore:  auditSearcher{},
		Limiter:     middleware.NewRateLimiter(rateLimit),
		RateLimit:   rateLimit,
		CORSOrigins: []string{"https://blog.example.com"},
		DefaultRole: rbac.DefaultRoleName,
		Auth:        auth,
	})
	return handler, metrics
}

func do(handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRouter_PrivateRoutesRequirePrincipal(t *testing.T) {
	handler, _ := newTestHandler(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/posts"},
		{http.MethodGet, "/api/users/me"},
		{http.MethodGet, "/api/roles"},
		{http.MethodPut, "/api/comments/5"},
		{http.MethodDelete, "/api/categories/3"},
	} {
		w := do(handler, tc.method, tc.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRouter_InvalidTokenRejected(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := do(handler, http.MethodGet, "/api/categories", "forged", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_AuditRequiresAdministrator(t *testing.T) {
	handler, metrics := newTestHandler(t)

	w := do(handler, http.MethodGet, "/api/audit/events", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(handler, http.MethodGet, "/api/audit/events", "author-token", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PermissionDeniedTotal.WithLabelValues("/api/audit/events")))

	w = do(handler, http.MethodGet, "/api/audit/events", "admin-token", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"events"`)
}

func TestRouter_CreationIsRateLimited(t *testing.T) {
	handler, metrics := newTestHandler(t)

	// a malformed body fails before any storage access but still spends a token
	w := do(handler, http.MethodPost, "/api/comments", "author-token", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(handler, http.MethodPost, "/api/comments", "author-token", "{")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RateLimitedTotal.WithLabelValues("/api/comments")))

	// other principals have their own budget
	w = do(handler, http.MethodPost, "/api/comments", "admin-token", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_NotFoundAndRequestID(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := do(handler, http.MethodGet, "/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestRouter_CORSPreflight(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "https://blog.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://blog.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RejectsNonJSONBodies(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader("nombre=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer admin-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
