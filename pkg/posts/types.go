package posts

import (
	"math"
	"strings"
	"time"

	"github.com/platinummonkey/pluma/pkg/validation"
)

// Publication statuses, as seeded in estados_publicacion
const (
	StatusDraft     = "borrador"
	StatusInReview  = "en_revision"
	StatusPublished = "publicado"
	StatusRejected  = "rechazado"
	StatusArchived  = "archivado"
)

// AllStatuses returns the status names in lifecycle order
func AllStatuses() []string {
	return []string{StatusDraft, StatusInReview, StatusPublished, StatusRejected, StatusArchived}
}

// requiresAdministrator reports whether entering status is an editorial
// decision reserved for administrators
func requiresAdministrator(status string) bool {
	return status == StatusPublished || status == StatusRejected
}

// WordsPerMinute is the reading speed used for ReadingMinutes
const WordsPerMinute = 200

// Post is a blog post joined with its author, status and categories
type Post struct {
	ID          int64      `json:"id"`
	Title       string     `json:"titulo"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"extracto"`
	Content     string     `json:"contenido"`
	HeroImage   *string    `json:"imagen_destacada,omitempty"`
	AuthorID    int64      `json:"usuario_id"`
	AuthorName  string     `json:"autor"`
	StatusID    int64      `json:"estado_id"`
	Status      string     `json:"estado"`
	PublishedAt *time.Time `json:"fecha_publicacion"`
	Keywords    []string   `json:"palabras_clave"`
	CategoryIDs []int64    `json:"categoria_ids"`
	Categories  []string   `json:"categorias"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	ReadingMinutes int `json:"reading_minutes"`
}

// Input carries the author-editable fields of a post. Update replaces every
// field, including the category set.
type Input struct {
	Title       string   `json:"titulo"`
	Excerpt     string   `json:"extracto"`
	Content     string   `json:"contenido"`
	HeroImage   *string  `json:"imagen_destacada"`
	CategoryIDs []int64  `json:"categorias"`
	Keywords    []string `json:"palabras_clave"`
}

// Filter narrows List. OwnerID is overridden for principals who may not
// read other users' drafts.
type Filter struct {
	OwnerID    int64    `json:"usuario_id,omitempty"`
	AuthorName string   `json:"autor_nombre,omitempty"`
	Status     string   `json:"estado_nombre,omitempty"`
	Categories []string `json:"categorias,omitempty"`
}

// StatusInfo is a row of the status catalog
type StatusInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
}

// CategoryInfo is the subset of a category used to populate filters
type CategoryInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"nombre"`
	Slug  string `json:"slug"`
	Color string `json:"color,omitempty"`
}

// ListResult is returned by List: the matching posts plus the catalogs a
// client needs to build its filters
type ListResult struct {
	Posts      []Post         `json:"posts"`
	Statuses   []StatusInfo   `json:"estados"`
	Categories []CategoryInfo `json:"categorias"`
}

// PublishedPage is one page of published posts
type PublishedPage struct {
	Posts      []Post                `json:"posts"`
	Pagination validation.Pagination `json:"pagination"`
}

// StatusChange requests a transition to Status
type StatusChange struct {
	Status  string  `json:"estado"`
	Comment *string `json:"comentario"`
}

// Revision is an immutable record of a post's content and status before a
// status change
type Revision struct {
	ID               int64     `json:"id"`
	PostID           int64     `json:"post_id"`
	PreviousContent  string    `json:"contenido_anterior"`
	PreviousStatusID int64     `json:"estado_anterior"`
	PreviousStatus   string    `json:"estado_anterior_nombre"`
	UserID           int64     `json:"usuario_id"`
	UserName         string    `json:"usuario"`
	Comment          *string   `json:"comentario,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// ReadingMinutes estimates reading time at WordsPerMinute, never less than one minute
func ReadingMinutes(content string) int {
	words := len(strings.Fields(content))
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// normalizeKeywords trims and lowercases keywords, dropping blanks and
// duplicates while keeping first-seen order
func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// normalizeCategoryIDs drops duplicates, keeping first-seen order
func normalizeCategoryIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
