package rbac

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/pluma/pkg/httputil"
)

// Handlers provides HTTP handlers for role administration
type Handlers struct {
	service *Service
}

// NewHandlers creates new RBAC handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{
		service: service,
	}
}

// RegisterRoutes registers all RBAC routes. The router is expected to run
// the authentication middleware; admin checks happen in the service.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/roles", h.ListRoles).Methods("GET")
	router.HandleFunc("/roles", h.CreateRole).Methods("POST")
	router.HandleFunc("/roles/{id}", h.GetRole).Methods("GET")
	router.HandleFunc("/roles/{id}", h.UpdateRole).Methods("PUT")
	router.HandleFunc("/roles/{id}", h.DeleteRole).Methods("DELETE")

	router.HandleFunc("/permissions", h.ListPermissions).Methods("GET")
}

// ListRoles lists every role with its permissions
func (h *Handlers) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, roles)
}

// GetRole returns a single role
func (h *Handlers) GetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	role, err := h.service.GetRole(r.Context(), PrincipalFromContext(r.Context()), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, role)
}

// CreateRole creates a new role
func (h *Handlers) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req RoleInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	role, err := h.service.CreateRole(r.Context(), PrincipalFromContext(r.Context()), req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, role)
}

// UpdateRole replaces a role's name, description and permissions
func (h *Handlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req RoleInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	role, err := h.service.UpdateRole(r.Context(), PrincipalFromContext(r.Context()), id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, role)
}

// DeleteRole deletes a role
func (h *Handlers) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteRole(r.Context(), PrincipalFromContext(r.Context()), id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// ListPermissions returns the permission catalog
func (h *Handlers) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, perms)
}
