package rbac

import (
	"context"
	"database/sql"
	"strings"

	"github.com/platinummonkey/pluma/pkg/apperr"
	"github.com/platinummonkey/pluma/pkg/audit"
	"github.com/platinummonkey/pluma/pkg/storage/postgres"
	"github.com/platinummonkey/pluma/pkg/validation"
)

// Service implements role administration. Every mutation is admin-only and
// runs in one transaction.
type Service struct {
	db          *sql.DB
	store       *Store
	audit       audit.Logger
	defaultRole string
}

// NewService creates a role administration service. defaultRole names the
// role given to new users; it can be neither renamed nor deleted.
func NewService(db *sql.DB, auditLogger audit.Logger, defaultRole string) *Service {
	if defaultRole == "" {
		defaultRole = DefaultRoleName
	}
	return &Service{
		db:          db,
		store:       NewStore(),
		audit:       auditLogger,
		defaultRole: defaultRole,
	}
}

// ListRoles returns every role with its permission names
func (s *Service) ListRoles(ctx context.Context, p *Principal) ([]Role, error) {
	if err := AuthorizeAdmin(p, "list roles"); err != nil {
		return nil, err
	}
	return s.store.ListRoles(ctx, s.db)
}

// GetRole returns one role
func (s *Service) GetRole(ctx context.Context, p *Principal, roleID int64) (*Role, error) {
	if err := AuthorizeAdmin(p, "get role"); err != nil {
		return nil, err
	}
	return s.store.GetRole(ctx, s.db, roleID)
}

// ListPermissions returns the permission catalog
func (s *Service) ListPermissions(ctx context.Context, p *Principal) ([]PermissionInfo, error) {
	if err := AuthorizeAdmin(p, "list permissions"); err != nil {
		return nil, err
	}
	return s.store.ListPermissions(ctx, s.db)
}

// normalizeRoleInput trims the input, deduplicates permission names and
// rejects anything outside the catalog before storage is touched.
func normalizeRoleInput(in RoleInput) (RoleInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	v := validation.New().
		Required("nombre", in.Name).
		MaxLength("nombre", in.Name, validation.MaxRoleNameLength)
	if err := v.Err(); err != nil {
		return in, err
	}

	seen := make(map[string]struct{}, len(in.Permissions))
	perms := make([]string, 0, len(in.Permissions))
	for _, name := range in.Permissions {
		name = strings.TrimSpace(name)
		if _, dup := seen[name]; dup {
			continue
		}
		if !IsKnownPermission(name) {
			return in, apperr.Validation("permisos", "unknown permission %q", name)
		}
		seen[name] = struct{}{}
		perms = append(perms, name)
	}
	in.Permissions = perms
	return in, nil
}

// CreateRole inserts a role and its permission links
func (s *Service) CreateRole(ctx context.Context, p *Principal, in RoleInput) (*Role, error) {
	if err := AuthorizeAdmin(p, "create role"); err != nil {
		return nil, err
	}
	in, err := normalizeRoleInput(in)
	if err != nil {
		return nil, err
	}

	var roleID int64
	err = postgres.WithTx(ctx, s.db, "create role", func(tx *sql.Tx) error {
		permIDs, err := s.store.ResolvePermissionIDs(ctx, tx, in.Permissions)
		if err != nil {
			return err
		}
		if roleID, err = s.store.InsertRole(ctx, tx, in.Name, in.Description); err != nil {
			return err
		}
		return s.store.ReplacePermissions(ctx, tx, roleID, permIDs)
	})
	if err != nil {
		return nil, err
	}

	audit.Emit(ctx, s.audit, audit.NewEvent(ctx, audit.EventRoleCreate, p.UserID).
		WithResource(audit.ResourceRole, roleID).
		WithMessage("role %q created", in.Name).
		WithMetadata("permisos", in.Permissions))

	return s.store.GetRole(ctx, s.db, roleID)
}

// UpdateRole overwrites a role and fully replaces its permission set
func (s *Service) UpdateRole(ctx context.Context, p *Principal, roleID int64, in RoleInput) (*Role, error) {
	if err := AuthorizeAdmin(p, "update role"); err != nil {
		return nil, err
	}
	in, err := normalizeRoleInput(in)
	if err != nil {
		return nil, err
	}

	err = postgres.WithTx(ctx, s.db, "update role", func(tx *sql.Tx) error {
		current, err := s.store.LockRole(ctx, tx, roleID)
		if err != nil {
			return err
		}
		if current == s.defaultRole && in.Name != current {
			return apperr.Conflict("role", "the default role %q cannot be renamed", current)
		}
		permIDs, err := s.store.ResolvePermissionIDs(ctx, tx, in.Permissions)
		if err != nil {
			return err
		}
		if err := s.store.UpdateRole(ctx, tx, roleID, in.Name, in.Description); err != nil {
			return err
		}
		return s.store.ReplacePermissions(ctx, tx, roleID, permIDs)
	})
	if err != nil {
		return nil, err
	}

	audit.Emit(ctx, s.audit, audit.NewEvent(ctx, audit.EventRoleUpdate, p.UserID).
		WithResource(audit.ResourceRole, roleID).
		WithMessage("role %q updated", in.Name).
		WithMetadata("permisos", in.Permissions))

	return s.store.GetRole(ctx, s.db, roleID)
}

// DeleteRole removes a role that no user references. The default role is
// never deleted.
func (s *Service) DeleteRole(ctx context.Context, p *Principal, roleID int64) error {
	if err := AuthorizeAdmin(p, "delete role"); err != nil {
		return err
	}

	var name string
	err := postgres.WithTx(ctx, s.db, "delete role", func(tx *sql.Tx) error {
		var err error
		if name, err = s.store.LockRole(ctx, tx, roleID); err != nil {
			return err
		}
		if name == s.defaultRole {
			return apperr.Conflict("role", "the default role %q cannot be deleted", name)
		}
		count, err := s.store.CountUsers(ctx, tx, roleID)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("role", "role %q is assigned to %d users", name, count)
		}
		return s.store.DeleteRole(ctx, tx, roleID)
	})
	if err != nil {
		return err
	}

	audit.Emit(ctx, s.audit, audit.NewEvent(ctx, audit.EventRoleDelete, p.UserID).
		WithResource(audit.ResourceRole, roleID).
		WithMessage("role %q deleted", name))
	return nil
}

// InitializeBuiltInRoles seeds the built-in roles that do not exist yet. It
// is safe to run on every start.
func (s *Service) InitializeBuiltInRoles(ctx context.Context) error {
	return postgres.WithTx(ctx, s.db, "initialize roles", func(tx *sql.Tx) error {
		for _, role := range BuiltInRoles() {
			if _, err := s.store.EnsureRole(ctx, tx, role); err != nil {
				return err
			}
		}
		return nil
	})
}
