package sso

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/pluma/pkg/audit"
	"github.com/platinummonkey/pluma/pkg/httputil"
	"github.com/platinummonkey/pluma/pkg/observability"
	"github.com/platinummonkey/pluma/pkg/users"
	"golang.org/x/oauth2"
)

const stateCookie = "pluma_oidc_state"

// Syncer reconciles an external identity into a local user
type Syncer interface {
	SyncPrincipal(ctx context.Context, ext ExternalUser) (*users.User, bool, error)
}

// Handlers handles the OIDC login flow
type Handlers struct {
	oauth2Config *oauth2.Config
	verifier     TokenVerifier
	syncer       Syncer
	auditLogger  audit.Logger
}

// NewHandlers creates a new SSO handlers instance
func NewHandlers(oauth2Config *oauth2.Config, verifier TokenVerifier, syncer Syncer, auditLogger audit.Logger) *Handlers {
	return &Handlers{
		oauth2Config: oauth2Config,
		verifier:     verifier,
		syncer:       syncer,
		auditLogger:  auditLogger,
	}
}

// RegisterRoutes registers SSO routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/login", h.initiateLogin).Methods("GET")
	router.HandleFunc("/auth/callback", h.handleCallback).Methods("GET")
}

// LoginResponse is returned by the callback. Clients send Token as a
// bearer token on later requests.
type LoginResponse struct {
	Token   string      `json:"token"`
	User    *users.User `json:"usuario"`
	Created bool        `json:"nuevo"`
}

// initiateLogin handles GET /auth/login
func (h *Handlers) initiateLogin(w http.ResponseWriter, r *http.Request) {
	// Generate state token
	stateBytes := make([]byte, 32)
	if _, err := rand.Read(stateBytes); err != nil {
		httputil.WriteInternalError(w)
		return
	}
	state := base64.URLEncoding.EncodeToString(stateBytes)

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600, // 10 minutes
	})

	http.Redirect(w, r, h.oauth2Config.AuthCodeURL(state), http.StatusFound)
}

// handleCallback handles GET /auth/callback
func (h *Handlers) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	// Verify state parameter
	cookie, err := r.Cookie(stateCookie)
	if err != nil {
		httputil.WriteBadRequest(w, "missing state cookie")
		return
	}
	if r.URL.Query().Get("state") != cookie.Value {
		httputil.WriteBadRequest(w, "invalid state parameter")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, MaxAge: -1, Path: "/auth"})

	if idpErr := r.URL.Query().Get("error"); idpErr != "" {
		httputil.WriteUnauthorized(w, "authentication failed: "+idpErr)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.WriteBadRequest(w, "missing authorization code")
		return
	}

	token, err := h.oauth2Config.Exchange(ctx, code)
	if err != nil {
		logger.WithError(err).Warn("OIDC code exchange failed")
		httputil.WriteUnauthorized(w, "authentication failed")
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		httputil.WriteUnauthorized(w, "missing id_token in response")
		return
	}

	ext, err := h.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.WithError(err).Warn("ID token rejected")
		httputil.WriteUnauthorized(w, "authentication failed")
		return
	}

	user, created, err := h.syncer.SyncPrincipal(ctx, *ext)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	audit.Emit(ctx, h.auditLogger, audit.NewEvent(ctx, audit.EventAuthLogin, user.ID).
		WithResource(audit.ResourceUser, user.ID).
		WithMessage("user %q signed in", user.Email).
		WithMetadata("nuevo", created))

	httputil.WriteOK(w, LoginResponse{Token: rawIDToken, User: user, Created: created})
}
