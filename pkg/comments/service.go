package comments

import (
	"context"
	"database/sql"
	"strings"

	"github.com/platinummonkey/pluma/pkg/apperr"
	"github.com/platinummonkey/pluma/pkg/audit"
	"github.com/platinummonkey/pluma/pkg/observability"
	"github.com/platinummonkey/pluma/pkg/rbac"
	"github.com/platinummonkey/pluma/pkg/storage/postgres"
	"github.com/platinummonkey/pluma/pkg/validation"
)

// published is the post status comments require
const published = "publicado"

// Service implements comment creation and moderation
type Service struct {
	db      *sql.DB
	store   *Store
	audit   audit.Logger
	metrics *observability.Metrics
}

// NewService creates a comment service. auditLogger and metrics may be nil.
func NewService(db *sql.DB, auditLogger audit.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		db:      db,
		store:   NewStore(),
		audit:   auditLogger,
		metrics: metrics,
	}
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	err := validation.New().
		Required("contenido", content).
		MaxLength("contenido", content, validation.MaxCommentLength).
		Err()
	return content, err
}

// Create adds a pending comment to a published post
func (s *Service) Create(ctx context.Context, p *rbac.Principal, in CreateInput) (*Comment, error) {
	if err := rbac.Authorize(p, rbac.PermissionComment); err != nil {
		return nil, err
	}
	content, err := validateContent(in.Content)
	if err != nil {
		return nil, err
	}
	if in.PostID <= 0 {
		return nil, apperr.Validation("post_id", "is required")
	}
	if in.ParentID != nil && *in.ParentID <= 0 {
		return nil, apperr.Validation("parent_id", "must be positive")
	}

	var id int64
	err = postgres.WithTx(ctx, s.db, "create comment", func(tx *sql.Tx) error {
		status, err := s.store.PostStatus(ctx, tx, in.PostID)
		if apperr.IsNotFound(err) {
			return apperr.Validation("post_id", "post %d does not exist", in.PostID)
		}
		if err != nil {
			return err
		}
		if status != published {
			return apperr.InvalidState("post %d is not published", in.PostID)
		}

		if in.ParentID != nil {
			parentPost, err := s.store.PostOf(ctx, tx, *in.ParentID)
			if apperr.IsNotFound(err) {
				return apperr.Validation("parent_id", "comment %d does not exist", *in.ParentID)
			}
			if err != nil {
				return err
			}
			if parentPost != in.PostID {
				return apperr.Validation("parent_id", "comment %d belongs to another post", *in.ParentID)
			}
		}

		id, err = s.store.Insert(ctx, tx, content, in.PostID, p.UserID, in.ParentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, s.db, id)
}

// Approve marks a comment aprobado. Approving an approved comment succeeds
// without writing.
func (s *Service) Approve(ctx context.Context, p *rbac.Principal, id int64) (*Comment, error) {
	return s.moderate(ctx, p, id, StatusApproved, audit.EventCommentApprove)
}

// Reject marks a comment rechazado. Rejecting a rejected comment succeeds
// without writing.
func (s *Service) Reject(ctx context.Context, p *rbac.Principal, id int64) (*Comment, error) {
	return s.moderate(ctx, p, id, StatusRejected, audit.EventCommentReject)
}

func (s *Service) moderate(ctx context.Context, p *rbac.Principal, id int64, target string, eventType audit.EventType) (*Comment, error) {
	if err := rbac.AuthorizeAdmin(p, "moderate comment"); err != nil {
		return nil, err
	}

	var previous string
	err := postgres.WithTx(ctx, s.db, "moderate comment", func(tx *sql.Tx) error {
		var err error
		if _, previous, err = s.store.Lock(ctx, tx, id); err != nil {
			return err
		}
		if previous == target {
			return nil
		}
		return s.store.SetStatus(ctx, tx, id, target)
	})
	if err != nil {
		return nil, err
	}

	if previous != target {
		s.metrics.RecordModeration(target)
		audit.Emit(ctx, s.audit, audit.NewEvent(ctx, eventType, p.UserID).
			WithResource(audit.ResourceComment, id).
			WithMessage("comment %d moved from %s to %s", id, previous, target).
			WithMetadata("estado_anterior", previous))
	}
	return s.store.Get(ctx, s.db, id)
}

// Update replaces the text of the principal's own comment. The edited
// comment goes back to pendiente.
func (s *Service) Update(ctx context.Context, p *rbac.Principal, id int64, content string) (*Comment, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	err = postgres.WithTx(ctx, s.db, "update comment", func(tx *sql.Tx) error {
		owner, _, err := s.store.Lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !p.IsOwner(owner) {
			return apperr.PermissionDenied("edit comment")
		}
		return s.store.UpdateContent(ctx, tx, id, content)
	})
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, s.db, id)
}

// Delete removes a comment and its replies. Allowed for the author and
// administrators.
func (s *Service) Delete(ctx context.Context, p *rbac.Principal, id int64) error {
	return postgres.WithTx(ctx, s.db, "delete comment", func(tx *sql.Tx) error {
		owner, _, err := s.store.Lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := rbac.AuthorizeOwnerOrAdmin(p, owner, "delete comment"); err != nil {
			return err
		}
		return s.store.Delete(ctx, tx, id)
	})
}

// Get returns a comment and its direct replies. The public sees only
// approved comments; authors also see their own.
func (s *Service) Get(ctx context.Context, p *rbac.Principal, id int64) (*Thread, error) {
	c, err := s.store.Get(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !visible(p, c) {
		return nil, apperr.NotFound("comment", id)
	}
	if err := s.checkPostReadable(ctx, p, c.PostID); err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("comment", id)
		}
		return nil, err
	}

	replies, err := s.store.ListReplies(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	shown := make([]Comment, 0, len(replies))
	for _, r := range replies {
		if visible(p, &r) {
			shown = append(shown, r)
		}
	}
	return &Thread{Comment: *c, Replies: shown}, nil
}

// ListByPost returns a post's comments oldest first. Administrators see
// every comment; everyone else sees approved ones. A post the caller may
// not read is reported as NotFound.
func (s *Service) ListByPost(ctx context.Context, p *rbac.Principal, postID int64) ([]Comment, error) {
	if err := s.checkPostReadable(ctx, p, postID); err != nil {
		return nil, err
	}
	return s.store.ListByPost(ctx, s.db, postID, !p.IsAdministrator())
}

// checkPostReadable fails with NotFound unless the post is published, owned
// by p, or p may edit any post
func (s *Service) checkPostReadable(ctx context.Context, p *rbac.Principal, postID int64) error {
	if p.CanEditAny() {
		return nil
	}
	status, ownerID, err := s.store.PostVisibility(ctx, s.db, postID)
	if err != nil {
		return err
	}
	if status != published && !p.IsOwner(ownerID) {
		return apperr.NotFound("post", postID)
	}
	return nil
}

// ListByUser returns a user's comments to that user or an administrator
func (s *Service) ListByUser(ctx context.Context, p *rbac.Principal, userID int64) ([]Comment, error) {
	if err := rbac.AuthorizeOwnerOrAdmin(p, userID, "list user comments"); err != nil {
		return nil, err
	}
	return s.store.ListByUser(ctx, s.db, userID)
}

// ListAll returns every comment for moderation
func (s *Service) ListAll(ctx context.Context, p *rbac.Principal, filter ListFilter) ([]Comment, error) {
	if err := rbac.AuthorizeAdmin(p, "list comments"); err != nil {
		return nil, err
	}
	filter.Status = strings.TrimSpace(filter.Status)
	switch filter.Status {
	case "", StatusPending, StatusApproved, StatusRejected:
	default:
		return nil, apperr.Validation("estado", "unknown comment status %q", filter.Status)
	}
	return s.store.List(ctx, s.db, filter)
}

func visible(p *rbac.Principal, c *Comment) bool {
	return c.Status == StatusApproved || p.IsOwner(c.UserID) || p.IsAdministrator()
}
