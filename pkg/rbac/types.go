package rbac

import (
	"sort"
)

// Permission is an opaque capability name from the seeded catalog
type Permission string

const (
	// Post permissions
	PermissionCreatePost  Permission = "crear_post"
	PermissionEditOwnPost Permission = "editar_post_propio"
	PermissionEditAnyPost Permission = "editar_post_cualquiera"
	PermissionPublishPost Permission = "publicar_post"
	PermissionDeletePost  Permission = "eliminar_post"

	// Administration
	PermissionAssignRoles Permission = "asignar_roles"

	// Category permissions
	PermissionCreateCategory Permission = "crear_categoria"
	PermissionEditCategory   Permission = "editar_categoria"
	PermissionDeleteCategory Permission = "eliminar_categoria"

	// Comment permissions
	PermissionComment Permission = "comentar"
)

func (p Permission) String() string {
	return string(p)
}

// AllPermissions returns the immutable permission catalog in seed order
func AllPermissions() []Permission {
	return []Permission{
		PermissionCreatePost,
		PermissionEditOwnPost,
		PermissionEditAnyPost,
		PermissionPublishPost,
		PermissionDeletePost,
		PermissionAssignRoles,
		PermissionCreateCategory,
		PermissionEditCategory,
		PermissionDeleteCategory,
		PermissionComment,
	}
}

// IsKnownPermission reports whether name is in the catalog
func IsKnownPermission(name string) bool {
	for _, p := range AllPermissions() {
		if string(p) == name {
			return true
		}
	}
	return false
}

// Built-in role names
const (
	RoleAdministrator = "administrador"
	RoleEditor        = "editor"
	RoleAuthor        = "autor"
	RoleCommenter     = "comentador"

	// DefaultRoleName is assigned to users on first sign-in
	DefaultRoleName = RoleCommenter
)

// Role is a named bundle of permissions
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"nombre"`
	Description string       `json:"descripcion"`
	Permissions []Permission `json:"permisos"`
	UserCount   int          `json:"usuarios,omitempty"`
}

// PermissionInfo is a catalog row
type PermissionInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
}

// RoleInput is the payload for role create/update
type RoleInput struct {
	Name        string   `json:"nombre"`
	Description string   `json:"descripcion"`
	Permissions []string `json:"permisos"`
}

// BuiltInRoles returns the roles seeded at startup
func BuiltInRoles() []Role {
	return []Role{
		{
			Name:        RoleAdministrator,
			Description: "Acceso total al sitio",
			Permissions: AllPermissions(),
		},
		{
			Name:        RoleEditor,
			Description: "Edita y organiza el contenido de todos los autores",
			Permissions: []Permission{
				PermissionCreatePost,
				PermissionEditOwnPost,
				PermissionEditAnyPost,
				PermissionDeletePost,
				PermissionCreateCategory,
				PermissionEditCategory,
				PermissionComment,
			},
		},
		{
			Name:        RoleAuthor,
			Description: "Escribe y edita sus propios posts",
			Permissions: []Permission{
				PermissionCreatePost,
				PermissionEditOwnPost,
				PermissionComment,
			},
		},
		{
			Name:        RoleCommenter,
			Description: "Comenta posts publicados",
			Permissions: []Permission{
				PermissionComment,
			},
		},
	}
}

// Principal is the authenticated actor: a local user plus the permission
// snapshot of their role at request time.
type Principal struct {
	UserID     int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"nombre"`
	Email      string `json:"email"`
	RoleID     int64  `json:"rol_id"`
	RoleName   string `json:"rol"`

	permissions map[Permission]struct{}
}

// NewPrincipal builds a principal from a user row and its role's permissions
func NewPrincipal(userID, roleID int64, roleName string, permissions []Permission) *Principal {
	p := &Principal{
		UserID:      userID,
		RoleID:      roleID,
		RoleName:    roleName,
		permissions: make(map[Permission]struct{}, len(permissions)),
	}
	for _, perm := range permissions {
		p.permissions[perm] = struct{}{}
	}
	return p
}

// HasPermission reports whether the principal's role grants perm. A nil
// principal has no permissions.
func (p *Principal) HasPermission(perm Permission) bool {
	if p == nil {
		return false
	}
	_, ok := p.permissions[perm]
	return ok
}

// IsAdministrator is the single admin check: holding asignar_roles
func (p *Principal) IsAdministrator() bool {
	return p.HasPermission(PermissionAssignRoles)
}

// IsOwner reports whether ownerID is this principal's user
func (p *Principal) IsOwner(ownerID int64) bool {
	return p != nil && p.UserID != 0 && p.UserID == ownerID
}

// CanEditAny is true for administrators and editar_post_cualquiera holders
func (p *Principal) CanEditAny() bool {
	return p.IsAdministrator() || p.HasPermission(PermissionEditAnyPost)
}

// PermissionList returns the granted permissions sorted by name
func (p *Principal) PermissionList() []Permission {
	if p == nil {
		return nil
	}
	list := make([]Permission, 0, len(p.permissions))
	for perm := range p.permissions {
		list = append(list, perm)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}
