package rbac

import (
	"github.com/platinummonkey/pluma/pkg/apperr"
)

// Authorize fails with PermissionDenied unless p holds perm.
// Administrators pass every check.
func Authorize(p *Principal, perm Permission) error {
	if p.HasPermission(perm) || p.IsAdministrator() {
		return nil
	}
	return apperr.PermissionDenied(string(perm))
}

// AuthorizeAdmin fails with PermissionDenied unless p is an administrator
func AuthorizeAdmin(p *Principal, action string) error {
	if p.IsAdministrator() {
		return nil
	}
	return apperr.PermissionDenied(action)
}

// AuthorizeOwned passes when p owns the resource and holds ownPerm, when p
// holds any of anyPerms, or when p is an administrator.
func AuthorizeOwned(p *Principal, ownerID int64, action string, ownPerm Permission, anyPerms ...Permission) error {
	if p.IsAdministrator() {
		return nil
	}
	for _, perm := range anyPerms {
		if p.HasPermission(perm) {
			return nil
		}
	}
	if ownPerm != "" && p.IsOwner(ownerID) && p.HasPermission(ownPerm) {
		return nil
	}
	return apperr.PermissionDenied(action)
}

// AuthorizeOwnerOrAdmin passes for the resource owner or an administrator
func AuthorizeOwnerOrAdmin(p *Principal, ownerID int64, action string) error {
	if p.IsOwner(ownerID) || p.IsAdministrator() {
		return nil
	}
	return apperr.PermissionDenied(action)
}
