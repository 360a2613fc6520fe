package main

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/pluma/pkg/audit"
	"github.com/platinummonkey/pluma/pkg/categories"
	"github.com/platinummonkey/pluma/pkg/comments"
	"github.com/platinummonkey/pluma/pkg/httputil"
	"github.com/platinummonkey/pluma/pkg/middleware"
	"github.com/platinummonkey/pluma/pkg/observability"
	"github.com/platinummonkey/pluma/pkg/posts"
	"github.com/platinummonkey/pluma/pkg/rbac"
	"github.com/platinummonkey/pluma/pkg/sso"
	"github.com/platinummonkey/pluma/pkg/users"
)

// maxBodyBytes caps API request bodies
const maxBodyBytes = 1 << 20

// Rate-limited creation endpoints, as mux path templates
var rateLimitedRoutes = []string{"/api/posts", "/api/comments"}

// routerDeps carries everything the API router needs. Auth, Login and
// AuditStore may be nil: without an identity provider every request is
// anonymous, and without an audit store the audit routes are not mounted.
type routerDeps struct {
	DB          *sql.DB
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	AuditLogger audit.Logger
	AuditStore  audit.Searcher
	Limiter     middleware.Limiter
	RateLimit   *middleware.RateLimitConfig
	CORSOrigins []string
	DefaultRole string

	Auth  *middleware.AuthMiddleware
	Login *sso.Handlers
}

// newHandler builds the API handler: request-scoped wrappers around a
// gorilla/mux router carrying every service route
func newHandler(deps routerDeps) http.Handler {
	return httputil.Chain(
		middleware.RequestID,
		httputil.LoggingMiddleware(deps.Logger),
		httputil.RecoveryMiddleware(deps.Logger),
		httputil.CORSMiddleware(deps.CORSOrigins),
	)(newRouter(deps))
}

func newRouter(deps routerDeps) *mux.Router {
	router := mux.NewRouter()
	router.Use(observability.HTTPMetricsMiddleware(deps.Metrics))
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "not found")
	})

	postService := posts.NewService(deps.DB, deps.Metrics)
	commentService := comments.NewService(deps.DB, deps.AuditLogger, deps.Metrics)
	categoryService := categories.NewService(deps.DB, deps.AuditLogger)
	roleService := rbac.NewService(deps.DB, deps.AuditLogger, deps.DefaultRole)
	userService := users.NewService(deps.DB, deps.AuditLogger)

	postHandlers := posts.NewHandlers(postService)
	commentHandlers := comments.NewHandlers(commentService)
	categoryHandlers := categories.NewHandlers(categoryService)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(httputil.MaxBytesMiddleware(maxBodyBytes), httputil.ContentTypeMiddleware)
	if deps.Auth != nil {
		api.Use(deps.Auth.Handler)
	}
	if deps.Limiter != nil {
		api.Use(middleware.NewRateLimitMiddleware(deps.Limiter, deps.RateLimit, deps.Metrics, rateLimitedRoutes...).Handler)
	}

	// Public routes see the principal when one is present but never require it
	postHandlers.RegisterPublicRoutes(api)
	commentHandlers.RegisterPublicRoutes(api)
	categoryHandlers.RegisterPublicRoutes(api)

	permissions := rbac.NewPermissionMiddleware(deps.Metrics)

	private := api.NewRoute().Subrouter()
	private.Use(permissions.RequireAuthenticated)
	postHandlers.RegisterRoutes(private)
	commentHandlers.RegisterRoutes(private)
	categoryHandlers.RegisterRoutes(private)
	rbac.NewHandlers(roleService).RegisterRoutes(private)
	users.NewHandlers(userService).RegisterRoutes(private)

	if deps.AuditStore != nil {
		admin := api.NewRoute().Subrouter()
		admin.Use(permissions.RequireAdministrator())
		audit.NewHandlers(deps.AuditStore).RegisterRoutes(admin)
	}

	if deps.Login != nil {
		deps.Login.RegisterRoutes(router)
	}

	return router
}
