package rbac

import (
	"context"
	"net/http"

	"github.com/platinummonkey/pluma/pkg/contextkeys"
	"github.com/platinummonkey/pluma/pkg/httputil"
	"github.com/platinummonkey/pluma/pkg/observability"
)

// WithPrincipal stores the authenticated principal in ctx
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return contextkeys.WithPrincipal(ctx, p)
}

// PrincipalFromContext returns the principal resolved for the request, or nil
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(contextkeys.PrincipalKey).(*Principal)
	return p
}

// PermissionMiddleware gates routes on the request principal
type PermissionMiddleware struct {
	metrics *observability.Metrics
}

// NewPermissionMiddleware creates a new permission middleware. metrics may be nil.
func NewPermissionMiddleware(metrics *observability.Metrics) *PermissionMiddleware {
	return &PermissionMiddleware{
		metrics: metrics,
	}
}

// RequireAuthenticated rejects requests without a principal with 401
func (pm *PermissionMiddleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromContext(r.Context()) == nil {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission creates middleware that requires a specific permission.
// Administrators always pass.
func (pm *PermissionMiddleware) RequirePermission(perm Permission) func(http.Handler) http.Handler {
	return pm.require(func(p *Principal) error {
		return Authorize(p, perm)
	})
}

// RequireAdministrator creates middleware that only lets administrators through
func (pm *PermissionMiddleware) RequireAdministrator() func(http.Handler) http.Handler {
	return pm.require(func(p *Principal) error {
		return AuthorizeAdmin(p, "administration")
	})
}

func (pm *PermissionMiddleware) require(check func(*Principal) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			if err := check(p); err != nil {
				pm.metrics.RecordPermissionDenied(observability.RouteLabel(r))
				httputil.WriteAppError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
