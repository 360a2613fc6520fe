package users

import (
	"context"
	"database/sql"

	"github.com/platinummonkey/pluma/pkg/apperr"
	"github.com/platinummonkey/pluma/pkg/audit"
	"github.com/platinummonkey/pluma/pkg/rbac"
	"github.com/platinummonkey/pluma/pkg/storage/postgres"
	"github.com/platinummonkey/pluma/pkg/validation"
)

// Service implements user administration
type Service struct {
	db    *sql.DB
	store *Store
	roles *rbac.Store
	audit audit.Logger
}

// NewService creates a user service
func NewService(db *sql.DB, auditLogger audit.Logger) *Service {
	return &Service{
		db:    db,
		store: NewStore(),
		roles: rbac.NewStore(),
		audit: auditLogger,
	}
}

// List returns one page of users
func (s *Service) List(ctx context.Context, p *rbac.Principal, page validation.Page) (*ListResult, error) {
	if err := rbac.AuthorizeAdmin(p, "list users"); err != nil {
		return nil, err
	}
	users, total, err := s.store.List(ctx, s.db, page)
	if err != nil {
		return nil, err
	}
	return &ListResult{Users: users, Pagination: page.Paginate(total)}, nil
}

// Get returns a user. Non-administrators may only read themselves.
func (s *Service) Get(ctx context.Context, p *rbac.Principal, id int64) (*User, error) {
	if err := rbac.AuthorizeOwnerOrAdmin(p, id, "get user"); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, s.db, id)
}

// Me returns the principal's own row and permissions
func (s *Service) Me(ctx context.Context, p *rbac.Principal) (*Profile, error) {
	if p == nil {
		return nil, apperr.ErrUnauthenticated
	}
	u, err := s.store.Get(ctx, s.db, p.UserID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: *u, Permissions: p.PermissionList()}, nil
}

// AssignRole moves a user to another role. An unknown role is a
// validation error, not a missing resource.
func (s *Service) AssignRole(ctx context.Context, p *rbac.Principal, userID, roleID int64) (*User, error) {
	if err := rbac.AuthorizeAdmin(p, "assign role"); err != nil {
		return nil, err
	}
	if roleID <= 0 {
		return nil, apperr.Validation("rol_id", "is required")
	}

	var previous int64
	var roleName string
	err := postgres.WithTx(ctx, s.db, "assign role", func(tx *sql.Tx) error {
		var err error
		if previous, err = s.store.Lock(ctx, tx, userID); err != nil {
			return err
		}
		roleName, err = s.roles.LockRole(ctx, tx, roleID)
		if apperr.IsNotFound(err) {
			return apperr.Validation("rol_id", "role %d does not exist", roleID)
		}
		if err != nil {
			return err
		}
		return s.store.SetRole(ctx, tx, userID, roleID)
	})
	if err != nil {
		return nil, err
	}

	audit.Emit(ctx, s.audit, audit.NewEvent(ctx, audit.EventUserRoleAssign, p.UserID).
		WithResource(audit.ResourceUser, userID).
		WithMessage("user %d assigned role %q", userID, roleName).
		WithMetadata("rol_anterior", previous).
		WithMetadata("rol_nuevo", roleID))

	return s.store.Get(ctx, s.db, userID)
}

// Delete removes a user that owns no posts or comments
func (s *Service) Delete(ctx context.Context, p *rbac.Principal, userID int64) error {
	if err := rbac.AuthorizeAdmin(p, "delete user"); err != nil {
		return err
	}
	if p.IsOwner(userID) {
		return apperr.Conflict("user", "administrators cannot delete their own account")
	}

	err := postgres.WithTx(ctx, s.db, "delete user", func(tx *sql.Tx) error {
		if _, err := s.store.Lock(ctx, tx, userID); err != nil {
			return err
		}
		posts, comments, err := s.store.CountOwnedContent(ctx, tx, userID)
		if err != nil {
			return err
		}
		if posts > 0 || comments > 0 {
			return apperr.Conflict("user", "user %d still owns %d posts and %d comments", userID, posts, comments)
		}
		return s.store.Delete(ctx, tx, userID)
	})
	if err != nil {
		return err
	}

	audit.Emit(ctx, s.audit, audit.NewEvent(ctx, audit.EventUserDelete, p.UserID).
		WithResource(audit.ResourceUser, userID).
		WithMessage("user %d deleted", userID))
	return nil
}
