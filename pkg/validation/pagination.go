package validation

import (
	"github.com/platinummonkey/pluma/pkg/apperr"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is a validated page request
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// NewPage validates a page request. Zero values select the defaults
// (page 1, limit 10).
func NewPage(page, limit int) (Page, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	if page < 1 {
		return Page{}, apperr.Validation("page", "must be at least 1")
	}
	if limit < 1 || limit > MaxPageLimit {
		return Page{}, apperr.Validation("limit", "must be between 1 and %d", MaxPageLimit)
	}
	return Page{Page: page, Limit: limit}, nil
}

// DefaultPage is page 1 with the default limit
func DefaultPage() Page {
	return Page{Page: 1, Limit: DefaultPageLimit}
}

// Offset is the number of rows to skip
func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Pagination describes a page of a larger result
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// Paginate builds the pagination block for total matching rows
func (p Page) Paginate(total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{Total: total, Page: p.Page, Limit: p.Limit, TotalPages: pages}
}
