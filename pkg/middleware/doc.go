// Package middleware provides the HTTP middleware that sits in front of the
// engines: request ids, bearer-token authentication and write rate limiting.
//
// # Authentication
//
// AuthMiddleware is optional authentication. A request without an
// Authorization header passes through anonymously; a request with a bearer
// token is verified against the identity provider, reconciled into a local
// user on first sight and resolved into an rbac.Principal:
//
//	auth := middleware.NewAuthMiddleware(verifier, provisioner, rbac.NewLoader(db))
//	api.Use(auth.Handler)
//
// Routes that need a principal add rbac.PermissionMiddleware.RequireAuthenticated.
//
// # Rate Limiting
//
// RateLimitMiddleware counts POSTs on selected route templates per
// principal (per client IP for anonymous callers):
//
//	limiter := middleware.NewRateLimiter(cfg)                   // single instance
//	limiter := middleware.NewDistributedRateLimiter(rdb, cfg, "") // shared through Redis
//	api.Use(middleware.NewRateLimitMiddleware(limiter, cfg, metrics, "/api/posts", "/api/comments").Handler)
//
// Redis failures fail open.
package middleware
