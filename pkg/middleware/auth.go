package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/platinummonkey/pluma/pkg/apperr"
	"github.com/platinummonkey/pluma/pkg/contextkeys"
	"github.com/platinummonkey/pluma/pkg/httputil"
	"github.com/platinummonkey/pluma/pkg/observability"
	"github.com/platinummonkey/pluma/pkg/rbac"
	"github.com/platinummonkey/pluma/pkg/sso"
)

// PrincipalLoader resolves local users into principals
type PrincipalLoader interface {
	LoadByExternalID(ctx context.Context, externalID string) (*rbac.Principal, error)
	LoadByUserID(ctx context.Context, userID int64) (*rbac.Principal, error)
}

// AuthMiddleware provides optional bearer-token authentication
type AuthMiddleware struct {
	verifier sso.TokenVerifier
	syncer   sso.Syncer
	loader   PrincipalLoader
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(verifier sso.TokenVerifier, syncer sso.Syncer, loader PrincipalLoader) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		syncer:   syncer,
		loader:   loader,
	}
}

// Handler wraps an HTTP handler with authentication. Requests without an
// Authorization header continue anonymously.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		ext, err := m.verifier.Verify(r.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Debug("bearer token rejected")
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		principal, err := m.resolve(r.Context(), *ext)
		if err != nil {
			if apperr.IsValidation(err) {
				httputil.WriteUnauthorized(w, "identity token is missing required claims")
				return
			}
			httputil.WriteAppError(w, r, err)
			return
		}

		ctx := rbac.WithPrincipal(r.Context(), principal)
		ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(principal.UserID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolve loads the principal for a known identity and provisions the
// local user on first sight
func (m *AuthMiddleware) resolve(ctx context.Context, ext sso.ExternalUser) (*rbac.Principal, error) {
	principal, err := m.loader.LoadByExternalID(ctx, ext.ExternalID)
	if err == nil {
		return principal, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	user, _, err := m.syncer.SyncPrincipal(ctx, ext)
	if err != nil {
		return nil, err
	}
	return m.loader.LoadByUserID(ctx, user.ID)
}
