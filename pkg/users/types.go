package users

import (
	"time"

	"github.com/platinummonkey/pluma/pkg/rbac"
	"github.com/platinummonkey/pluma/pkg/validation"
)

// User is a local user row joined with its role name
type User struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"nombre"`
	Email      string    `json:"email"`
	RoleID     int64     `json:"rol_id"`
	RoleName   string    `json:"rol"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Profile is the caller's own user row plus its permission snapshot
type Profile struct {
	User
	Permissions []rbac.Permission `json:"permisos"`
}

// ListResult is one page of users
type ListResult struct {
	Users      []User                `json:"usuarios"`
	Pagination validation.Pagination `json:"pagination"`
}
