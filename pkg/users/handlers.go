package users

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/pluma/pkg/httputil"
	"github.com/platinummonkey/pluma/pkg/rbac"
)

// Handlers provides HTTP handlers for user administration
type Handlers struct {
	service *Service
}

// NewHandlers creates new user handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers user routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users", h.List).Methods("GET")
	router.HandleFunc("/users/me", h.Me).Methods("GET")
	router.HandleFunc("/users/{id:[0-9]+}", h.Get).Methods("GET")
	router.HandleFunc("/users/{id:[0-9]+}/role", h.AssignRole).Methods("PUT")
	router.HandleFunc("/users/{id:[0-9]+}", h.Delete).Methods("DELETE")
}

// List handles GET /users
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	page, ok := httputil.ParsePageOrError(w, r)
	if !ok {
		return
	}

	result, err := h.service.List(r.Context(), rbac.PrincipalFromContext(r.Context()), page)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, result)
}

// Me handles GET /users/me
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Me(r.Context(), rbac.PrincipalFromContext(r.Context()))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, profile)
}

// Get handles GET /users/{id}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	user, err := h.service.Get(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, user)
}

// AssignRole handles PUT /users/{id}/role with body {"rol_id": n}
func (h *Handlers) AssignRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		RoleID int64 `json:"rol_id"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.service.AssignRole(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req.RoleID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, user)
}

// Delete handles DELETE /users/{id}
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
