package posts

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/pluma/pkg/httputil"
	"github.com/platinummonkey/pluma/pkg/rbac"
)

// Handlers provides HTTP handlers for posts
type Handlers struct {
	service *Service
}

// NewHandlers creates new post handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the authenticated post routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/posts", h.List).Methods("GET")
	router.HandleFunc("/posts", h.Create).Methods("POST")
	router.HandleFunc("/posts/{id:[0-9]+}", h.Get).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}", h.Update).Methods("PUT")
	router.HandleFunc("/posts/{id:[0-9]+}", h.Delete).Methods("DELETE")
	router.HandleFunc("/posts/{id:[0-9]+}/status", h.ChangeStatus).Methods("POST")
	router.HandleFunc("/posts/{id:[0-9]+}/revisions", h.ListRevisions).Methods("GET")
}

// RegisterPublicRoutes registers the anonymous read routes
func (h *Handlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/public/posts", h.ListPublished).Methods("GET")
	router.HandleFunc("/public/posts/{slug}", h.GetBySlug).Methods("GET")
}

// List handles GET /posts?usuario_id=&autor_nombre=&estado_nombre=&categorias=a,b
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	ownerID, err := httputil.ParseQueryInt64(r, "usuario_id", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	query := r.URL.Query()
	filter := Filter{
		OwnerID:    ownerID,
		AuthorName: query.Get("autor_nombre"),
		Status:     query.Get("estado_nombre"),
	}
	for _, raw := range query["categorias"] {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				filter.Categories = append(filter.Categories, name)
			}
		}
	}

	result, err := h.service.List(r.Context(), rbac.PrincipalFromContext(r.Context()), filter)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, result)
}

// Create handles POST /posts
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	post, err := h.service.Create(r.Context(), rbac.PrincipalFromContext(r.Context()), in)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, post)
}

// Get handles GET /posts/{id}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	post, err := h.service.Get(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, post)
}

// Update handles PUT /posts/{id}
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in Input
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	post, err := h.service.Update(r.Context(), rbac.PrincipalFromContext(r.Context()), id, in)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, post)
}

// Delete handles DELETE /posts/{id}
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

// ChangeStatus handles POST /posts/{id}/status with body {"estado": "...", "comentario": "..."}
func (h *Handlers) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var change StatusChange
	if !httputil.ParseJSONOrError(w, r, &change) {
		return
	}

	post, err := h.service.ChangeStatus(r.Context(), rbac.PrincipalFromContext(r.Context()), id, change)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, post)
}

// ListRevisions handles GET /posts/{id}/revisions
func (h *Handlers) ListRevisions(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	revisions, err := h.service.ListRevisions(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, revisions)
}

// ListPublished handles GET /public/posts
func (h *Handlers) ListPublished(w http.ResponseWriter, r *http.Request) {
	page, ok := httputil.ParsePageOrError(w, r)
	if !ok {
		return
	}

	result, err := h.service.ListPublished(r.Context(), page)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, result)
}

// GetBySlug handles GET /public/posts/{slug}. An authenticated author may
// preview an unpublished post here too.
func (h *Handlers) GetBySlug(w http.ResponseWriter, r *http.Request) {
	postSlug, err := httputil.ParsePathString(r, "slug")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	post, err := h.service.GetBySlug(r.Context(), rbac.PrincipalFromContext(r.Context()), postSlug)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, post)
}
