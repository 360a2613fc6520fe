package posts

import (
	"context"
	"database/sql"
	"strings"

	"github.com/platinummonkey/pluma/pkg/apperr"
	"github.com/platinummonkey/pluma/pkg/observability"
	"github.com/platinummonkey/pluma/pkg/rbac"
	"github.com/platinummonkey/pluma/pkg/slug"
	"github.com/platinummonkey/pluma/pkg/storage/postgres"
	"github.com/platinummonkey/pluma/pkg/validation"
	"go.opentelemetry.io/otel/attribute"
)

// Service implements the post lifecycle
type Service struct {
	db      *sql.DB
	store   *Store
	metrics *observability.Metrics
}

// NewService creates a post service. metrics may be nil.
func NewService(db *sql.DB, metrics *observability.Metrics) *Service {
	return &Service{
		db:      db,
		store:   NewStore(),
		metrics: metrics,
	}
}

// normalizeInput trims and validates author input and derives the slug
func normalizeInput(in Input) (Input, string, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Content = strings.TrimSpace(in.Content)
	if in.HeroImage != nil {
		img := strings.TrimSpace(*in.HeroImage)
		if img == "" {
			in.HeroImage = nil
		} else {
			in.HeroImage = &img
		}
	}
	in.Keywords = normalizeKeywords(in.Keywords)
	in.CategoryIDs = normalizeCategoryIDs(in.CategoryIDs)

	postSlug := slug.Make(in.Title)

	v := validation.New().
		Required("titulo", in.Title).
		MaxLength("titulo", in.Title, validation.MaxTitleLength).
		Required("extracto", in.Excerpt).
		Required("contenido", in.Content)
	if in.Title != "" {
		v.Check(postSlug != "", "titulo", "must contain at least one letter or digit")
	}
	for _, k := range in.Keywords {
		v.MaxLength("palabras_clave", k, validation.MaxKeywordLength)
	}
	for _, id := range in.CategoryIDs {
		v.Check(id > 0, "categorias", "category ids must be positive")
	}
	return in, postSlug, v.Err()
}

// canRead reports whether p may see post: published posts are public,
// anything else is visible to its author and to principals who may edit any post
func canRead(p *rbac.Principal, post *Post) bool {
	return post.Status == StatusPublished || p.IsOwner(post.AuthorID) || p.CanEditAny()
}

// Create stores a new draft owned by p
func (s *Service) Create(ctx context.Context, p *rbac.Principal, in Input) (*Post, error) {
	if err := rbac.Authorize(p, rbac.PermissionCreatePost); err != nil {
		return nil, err
	}
	in, postSlug, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	var id int64
	err = postgres.WithTx(ctx, s.db, "create post", func(tx *sql.Tx) error {
		draftID, err := s.store.StatusID(ctx, tx, StatusDraft)
		if apperr.IsNotFound(err) {
			return apperr.InvalidState("status %q is not seeded", StatusDraft)
		}
		if err != nil {
			return err
		}
		if id, err = s.store.Insert(ctx, tx, in, postSlug, p.UserID, draftID); err != nil {
			return err
		}
		return s.store.InsertCategories(ctx, tx, id, in.CategoryIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, s.db, id)
}

// Update replaces a post's fields and its category set. The author needs
// editar_post_propio; anyone else needs editar_post_cualquiera.
func (s *Service) Update(ctx context.Context, p *rbac.Principal, id int64, in Input) (*Post, error) {
	in, postSlug, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	err = postgres.WithTx(ctx, s.db, "update post", func(tx *sql.Tx) error {
		current, err := s.store.Lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := rbac.AuthorizeOwned(p, current.OwnerID, "edit post",
			rbac.PermissionEditOwnPost, rbac.PermissionEditAnyPost); err != nil {
			return err
		}
		if err := s.store.Update(ctx, tx, id, in, postSlug); err != nil {
			return err
		}
		return s.store.ReplaceCategories(ctx, tx, id, in.CategoryIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, s.db, id)
}

// ChangeStatus moves a post to change.Status and records a revision of the
// previous content and status. The post row is locked for the duration, so
// concurrent changes serialize.
func (s *Service) ChangeStatus(ctx context.Context, p *rbac.Principal, id int64, change StatusChange) (_ *Post, err error) {
	target := strings.TrimSpace(change.Status)

	ctx, span := observability.StartSpan(ctx, "posts.ChangeStatus",
		attribute.Int64("post.id", id),
		attribute.String("post.target_status", target),
	)
	defer func() { observability.EndSpan(span, err) }()

	if target == "" {
		return nil, apperr.Validation("estado", "is required")
	}
	if requiresAdministrator(target) {
		if err := rbac.AuthorizeAdmin(p, "set post status to "+target); err != nil {
			return nil, err
		}
	}

	var comment *string
	if change.Comment != nil {
		if c := strings.TrimSpace(*change.Comment); c != "" {
			comment = &c
		}
	}

	err = postgres.WithTx(ctx, s.db, "change post status", func(tx *sql.Tx) error {
		statusID, err := s.store.StatusID(ctx, tx, target)
		if apperr.IsNotFound(err) {
			return apperr.Validation("estado", "unknown status %q", target)
		}
		if err != nil {
			return err
		}

		previous, err := s.store.Lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !requiresAdministrator(target) {
			if err := rbac.AuthorizeOwned(p, previous.OwnerID, "change post status",
				rbac.PermissionEditOwnPost, rbac.PermissionEditAnyPost); err != nil {
				return err
			}
		}

		if err := s.store.SetStatus(ctx, tx, id, statusID, target == StatusPublished); err != nil {
			return err
		}
		return s.store.InsertRevision(ctx, tx, id, previous, p.UserID, comment)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStatusTransition(target)
	return s.store.Get(ctx, s.db, id)
}

// Delete removes a post. Allowed for its author, administrators and holders
// of editar_post_cualquiera or eliminar_post.
func (s *Service) Delete(ctx context.Context, p *rbac.Principal, id int64) error {
	return postgres.WithTx(ctx, s.db, "delete post", func(tx *sql.Tx) error {
		current, err := s.store.Lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !p.IsOwner(current.OwnerID) {
			if err := rbac.AuthorizeOwned(p, current.OwnerID, "delete post", "",
				rbac.PermissionEditAnyPost, rbac.PermissionDeletePost); err != nil {
				return err
			}
		}
		return s.store.Delete(ctx, tx, id)
	})
}

// Get returns a post p may read. Posts p may not read are reported as
// missing.
func (s *Service) Get(ctx context.Context, p *rbac.Principal, id int64) (*Post, error) {
	post, err := s.store.Get(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !canRead(p, post) {
		return nil, apperr.NotFound("post", id)
	}
	return post, nil
}

// GetBySlug returns a post by slug. p may be nil for anonymous readers.
func (s *Service) GetBySlug(ctx context.Context, p *rbac.Principal, postSlug string) (*Post, error) {
	post, err := s.store.GetBySlug(ctx, s.db, postSlug)
	if err != nil {
		return nil, err
	}
	if !canRead(p, post) {
		return nil, apperr.NotFound("post", postSlug)
	}
	return post, nil
}

// List returns posts matching filter with the status and category catalogs.
// Unless p may edit any post, the owner filter is forced to p.
func (s *Service) List(ctx context.Context, p *rbac.Principal, filter Filter) (*ListResult, error) {
	if p == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if !p.CanEditAny() {
		filter.OwnerID = p.UserID
	}

	filter.AuthorName = strings.TrimSpace(filter.AuthorName)
	filter.Status = strings.TrimSpace(filter.Status)
	if filter.Status != "" && !isKnownStatus(filter.Status) {
		return nil, apperr.Validation("estado_nombre", "unknown status %q", filter.Status)
	}

	posts, err := s.store.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	statuses, err := s.store.ListStatuses(ctx, s.db)
	if err != nil {
		return nil, err
	}
	categories, err := s.store.ListCategories(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return &ListResult{Posts: posts, Statuses: statuses, Categories: categories}, nil
}

// ListPublished returns one page of published posts
func (s *Service) ListPublished(ctx context.Context, page validation.Page) (*PublishedPage, error) {
	posts, total, err := s.store.ListPublished(ctx, s.db, page)
	if err != nil {
		return nil, err
	}
	return &PublishedPage{Posts: posts, Pagination: page.Paginate(total)}, nil
}

// ListRevisions returns the revision log of a post to its author or to
// principals who may edit any post
func (s *Service) ListRevisions(ctx context.Context, p *rbac.Principal, id int64) ([]Revision, error) {
	owner, err := s.store.Owner(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !p.IsOwner(owner) && !p.CanEditAny() {
		return nil, apperr.PermissionDenied("list post revisions")
	}
	return s.store.ListRevisions(ctx, s.db, id)
}

func isKnownStatus(name string) bool {
	for _, st := range AllStatuses() {
		if st == name {
			return true
		}
	}
	return false
}
