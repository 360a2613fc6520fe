// Package categories administers the post categories. Reads are public;
// writes need the category permissions, with administrators passing every
// check.
package categories

import "time"

// Category groups posts. Slug is derived from Name.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"nombre"`
	Description string    `json:"descripcion"`
	Slug        string    `json:"slug"`
	Color       *string   `json:"color,omitempty"`
	Icon        *string   `json:"icono,omitempty"`
	PostCount   int       `json:"posts"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input is the payload for create and update
type Input struct {
	Name        string  `json:"nombre"`
	Description string  `json:"descripcion"`
	Color       *string `json:"color"`
	Icon        *string `json:"icono"`
}
