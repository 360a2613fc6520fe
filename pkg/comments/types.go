package comments

import "time"

// Moderation states
const (
	StatusPending  = "pendiente"
	StatusApproved = "aprobado"
	StatusRejected = "rechazado"
)

// Comment is a comment joined with its author and post
type Comment struct {
	ID        int64     `json:"id"`
	Content   string    `json:"contenido"`
	PostID    int64     `json:"post_id"`
	PostTitle string    `json:"post_titulo"`
	PostSlug  string    `json:"post_slug"`
	UserID    int64     `json:"usuario_id"`
	UserName  string    `json:"autor"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Status    string    `json:"estado"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Thread is a comment with its direct replies, oldest first
type Thread struct {
	Comment Comment   `json:"comentario"`
	Replies []Comment `json:"respuestas"`
}

// CreateInput is the payload for a new comment
type CreateInput struct {
	Content  string `json:"contenido"`
	PostID   int64  `json:"post_id"`
	ParentID *int64 `json:"parent_id"`
}

// ListFilter narrows the administrator listing
type ListFilter struct {
	Status string
	PostID int64
}
