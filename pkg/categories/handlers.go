package categories

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/pluma/pkg/httputil"
	"github.com/platinummonkey/pluma/pkg/rbac"
)

// Handlers provides HTTP handlers for categories
type Handlers struct {
	service *Service
}

// NewHandlers creates new category handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the category write routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/categories", h.Create).Methods("POST")
	router.HandleFunc("/categories/{id:[0-9]+}", h.Update).Methods("PUT")
	router.HandleFunc("/categories/{id:[0-9]+}", h.Delete).Methods("DELETE")
}

// RegisterPublicRoutes registers the category read routes
func (h *Handlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/categories", h.List).Methods("GET")
	router.HandleFunc("/categories/{id:[0-9]+}", h.Get).Methods("GET")
}

// List handles GET /categories
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, categories)
}

// Get handles GET /categories/{id}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	category, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, category)
}

// Create handles POST /categories
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	category, err := h.service.Create(r.Context(), rbac.PrincipalFromContext(r.Context()), in)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, category)
}

// Update handles PUT /categories/{id}
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in Input
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	category, err := h.service.Update(r.Context(), rbac.PrincipalFromContext(r.Context()), id, in)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, category)
}

// Delete handles DELETE /categories/{id}
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
