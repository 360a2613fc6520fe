package categories

import (
	"context"
	"database/sql"
	"strings"

	"github.com/platinummonkey/pluma/pkg/audit"
	"github.com/platinummonkey/pluma/pkg/rbac"
	"github.com/platinummonkey/pluma/pkg/slug"
	"github.com/platinummonkey/pluma/pkg/validation"
)

// Service implements category administration
type Service struct {
	db    *sql.DB
	store *Store
	audit audit.Logger
}

// NewService creates a category service. auditLogger may be nil.
func NewService(db *sql.DB, auditLogger audit.Logger) *Service {
	return &Service{
		db:    db,
		store: NewStore(),
		audit: auditLogger,
	}
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// normalizeInput trims the payload and derives the slug
func normalizeInput(in Input) (Input, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Color = trimOptional(in.Color)
	in.Icon = trimOptional(in.Icon)

	s := slug.Make(in.Name)
	v := validation.New().
		Required("nombre", in.Name).
		MaxLength("nombre", in.Name, validation.MaxCategoryNameLength)
	if in.Name != "" {
		v.Check(s != "", "nombre", "must contain a letter or digit")
	}
	if in.Color != nil {
		v.HexColor("color", *in.Color)
	}
	if in.Icon != nil {
		v.MaxLength("icono", *in.Icon, 100)
	}
	return in, s, v.Err()
}

// List returns every category
func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.store.List(ctx, s.db)
}

// Get returns one category
func (s *Service) Get(ctx context.Context, id int64) (*Category, error) {
	return s.store.Get(ctx, s.db, id)
}

// Create inserts a category. Duplicate names or slugs fail with ConflictError.
func (s *Service) Create(ctx context.Context, p *rbac.Principal, in Input) (*Category, error) {
	if err := rbac.Authorize(p, rbac.PermissionCreateCategory); err != nil {
		return nil, err
	}
	in, sl, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	id, err := s.store.Insert(ctx, s.db, in, sl)
	if err != nil {
		return nil, err
	}

	audit.Emit(ctx, s.audit, audit.NewEvent(ctx, audit.EventCategoryCreate, p.UserID).
		WithResource(audit.ResourceCategory, id).
		WithMessage("category %q created", in.Name).
		WithMetadata("slug", sl))

	return s.store.Get(ctx, s.db, id)
}

// Update overwrites a category and re-derives its slug
func (s *Service) Update(ctx context.Context, p *rbac.Principal, id int64, in Input) (*Category, error) {
	if err := rbac.Authorize(p, rbac.PermissionEditCategory); err != nil {
		return nil, err
	}
	in, sl, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, s.db, id, in, sl); err != nil {
		return nil, err
	}

	audit.Emit(ctx, s.audit, audit.NewEvent(ctx, audit.EventCategoryUpdate, p.UserID).
		WithResource(audit.ResourceCategory, id).
		WithMessage("category %q updated", in.Name).
		WithMetadata("slug", sl))

	return s.store.Get(ctx, s.db, id)
}

// Delete removes a category and its post associations
func (s *Service) Delete(ctx context.Context, p *rbac.Principal, id int64) error {
	if err := rbac.Authorize(p, rbac.PermissionDeleteCategory); err != nil {
		return err
	}

	name, err := s.store.Delete(ctx, s.db, id)
	if err != nil {
		return err
	}

	audit.Emit(ctx, s.audit, audit.NewEvent(ctx, audit.EventCategoryDelete, p.UserID).
		WithResource(audit.ResourceCategory, id).
		WithMessage("category %q deleted", name))
	return nil
}
