package comments

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/pluma/pkg/httputil"
	"github.com/platinummonkey/pluma/pkg/rbac"
)

// Handlers provides HTTP handlers for comments
type Handlers struct {
	service *Service
}

// NewHandlers creates new comment handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the authenticated comment routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/comments", h.List).Methods("GET")
	router.HandleFunc("/comments", h.Create).Methods("POST")
	router.HandleFunc("/comments/{id:[0-9]+}", h.Update).Methods("PUT")
	router.HandleFunc("/comments/{id:[0-9]+}", h.Delete).Methods("DELETE")
	router.HandleFunc("/comments/{id:[0-9]+}/approve", h.Approve).Methods("POST")
	router.HandleFunc("/comments/{id:[0-9]+}/reject", h.Reject).Methods("POST")
}

// RegisterPublicRoutes registers the routes anonymous readers may use
func (h *Handlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/comments/{id:[0-9]+}", h.Get).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}/comments", h.ListByPost).Methods("GET")
}

// List handles GET /comments. With ?usuario_id= it lists that user's
// comments; otherwise it is the moderation queue, filtered by ?estado= and ?post_id=.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	p := rbac.PrincipalFromContext(r.Context())

	userID, err := httputil.ParseQueryInt64(r, "usuario_id", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	postID, err := httputil.ParseQueryInt64(r, "post_id", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var comments []Comment
	if userID != 0 {
		comments, err = h.service.ListByUser(r.Context(), p, userID)
	} else {
		comments, err = h.service.ListAll(r.Context(), p, ListFilter{
			Status: r.URL.Query().Get("estado"),
			PostID: postID,
		})
	}
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, comments)
}

// Create handles POST /comments
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	comment, err := h.service.Create(r.Context(), rbac.PrincipalFromContext(r.Context()), in)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, comment)
}

// Get handles GET /comments/{id}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	thread, err := h.service.Get(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, thread)
}

// Update handles PUT /comments/{id} with body {"contenido": "..."}
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"contenido"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	comment, err := h.service.Update(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req.Content)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, comment)
}

// Delete handles DELETE /comments/{id}
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

// Approve handles POST /comments/{id}/approve
func (h *Handlers) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	comment, err := h.service.Approve(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, comment)
}

// Reject handles POST /comments/{id}/reject
func (h *Handlers) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	comment, err := h.service.Reject(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, comment)
}

// ListByPost handles GET /posts/{id}/comments
func (h *Handlers) ListByPost(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	comments, err := h.service.ListByPost(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteOK(w, comments)
}
