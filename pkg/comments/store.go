package comments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/pluma/pkg/apperr"
	"github.com/platinummonkey/pluma/pkg/storage/postgres"
)

// Store handles comment persistence
type Store struct{}

// NewStore creates a new comment store
func NewStore() *Store {
	return &Store{}
}

const commentSelect = `
	SELECT c.id, c.contenido, c.post_id, p.titulo, p.slug, c.usuario_id, u.nombre,
		c.parent_id, c.estado, c.created_at, c.updated_at
	FROM comentarios c
	JOIN posts p ON p.id = c.post_id
	JOIN usuarios u ON u.id = c.usuario_id
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanComment(row rowScanner) (*Comment, error) {
	var (
		c        Comment
		parentID sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.Content, &c.PostID, &c.PostTitle, &c.PostSlug, &c.UserID, &c.UserName,
		&parentID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		id := parentID.Int64
		c.ParentID = &id
	}
	return &c, nil
}

func (s *Store) query(ctx context.Context, q postgres.Querier, op, where string, args ...interface{}) ([]Comment, error) {
	rows, err := q.QueryContext(ctx, commentSelect+where, args...)
	if err != nil {
		return nil, postgres.ClassifyError(op, err)
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, postgres.ClassifyError("scan comment", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.ClassifyError(op, err)
	}
	return comments, nil
}

// Get retrieves a comment by ID
func (s *Store) Get(ctx context.Context, q postgres.Querier, id int64) (*Comment, error) {
	c, err := scanComment(q.QueryRowContext(ctx, commentSelect+` WHERE c.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("comment", id)
	}
	if err != nil {
		return nil, postgres.ClassifyError("get comment", err)
	}
	return c, nil
}

// ListReplies returns the direct replies of a comment, oldest first
func (s *Store) ListReplies(ctx context.Context, q postgres.Querier, parentID int64) ([]Comment, error) {
	return s.query(ctx, q, "list comment replies",
		` WHERE c.parent_id = $1 ORDER BY c.created_at, c.id`, parentID)
}

// ListByPost returns a post's comments, oldest first. approvedOnly hides
// pending and rejected comments.
func (s *Store) ListByPost(ctx context.Context, q postgres.Querier, postID int64, approvedOnly bool) ([]Comment, error) {
	if approvedOnly {
		return s.query(ctx, q, "list post comments",
			` WHERE c.post_id = $1 AND c.estado = $2 ORDER BY c.created_at, c.id`, postID, StatusApproved)
	}
	return s.query(ctx, q, "list post comments",
		` WHERE c.post_id = $1 ORDER BY c.created_at, c.id`, postID)
}

// ListByUser returns a user's comments, newest first
func (s *Store) ListByUser(ctx context.Context, q postgres.Querier, userID int64) ([]Comment, error) {
	return s.query(ctx, q, "list user comments",
		` WHERE c.usuario_id = $1 ORDER BY c.created_at DESC, c.id DESC`, userID)
}

// List returns every comment matching filter, newest first
func (s *Store) List(ctx context.Context, q postgres.Querier, filter ListFilter) ([]Comment, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("c.estado = $%d", len(args)))
	}
	if filter.PostID != 0 {
		args = append(args, filter.PostID)
		conditions = append(conditions, fmt.Sprintf("c.post_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	return s.query(ctx, q, "list comments", where+` ORDER BY c.created_at DESC, c.id DESC`, args...)
}

// PostStatus returns the publication status name of a post and keeps the
// post row share-locked until the transaction ends
func (s *Store) PostStatus(ctx context.Context, q postgres.Querier, postID int64) (string, error) {
	var status string
	err := q.QueryRowContext(ctx, `
		SELECT e.nombre FROM posts p
		JOIN estados_publicacion e ON e.id = p.estado_id
		WHERE p.id = $1
		FOR SHARE OF p`, postID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("post", postID)
	}
	if err != nil {
		return "", postgres.ClassifyError("get post status", err)
	}
	return status, nil
}

// PostVisibility returns a post's status name and author
func (s *Store) PostVisibility(ctx context.Context, q postgres.Querier, postID int64) (status string, ownerID int64, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT e.nombre, p.usuario_id FROM posts p
		JOIN estados_publicacion e ON e.id = p.estado_id
		WHERE p.id = $1`, postID,
	).Scan(&status, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, apperr.NotFound("post", postID)
	}
	if err != nil {
		return "", 0, postgres.ClassifyError("get post visibility", err)
	}
	return status, ownerID, nil
}

// PostOf returns the post a comment belongs to
func (s *Store) PostOf(ctx context.Context, q postgres.Querier, commentID int64) (int64, error) {
	var postID int64
	err := q.QueryRowContext(ctx, `SELECT post_id FROM comentarios WHERE id = $1`, commentID).Scan(&postID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.NotFound("comment", commentID)
	}
	if err != nil {
		return 0, postgres.ClassifyError("get comment post", err)
	}
	return postID, nil
}

// Insert creates a pending comment and returns its id
func (s *Store) Insert(ctx context.Context, q postgres.Querier, content string, postID, userID int64, parentID *int64) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO comentarios (contenido, post_id, usuario_id, parent_id, estado)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		content, postID, userID, parentID, StatusPending,
	).Scan(&id)
	if err != nil {
		return 0, postgres.ClassifyError("insert comment", err)
	}
	return id, nil
}

// Lock reads a comment's author and status under a row lock
func (s *Store) Lock(ctx context.Context, q postgres.Querier, id int64) (ownerID int64, status string, err error) {
	err = q.QueryRowContext(ctx,
		`SELECT usuario_id, estado FROM comentarios WHERE id = $1 FOR UPDATE`, id,
	).Scan(&ownerID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", apperr.NotFound("comment", id)
	}
	if err != nil {
		return 0, "", postgres.ClassifyError("lock comment", err)
	}
	return ownerID, status, nil
}

// SetStatus changes a comment's moderation state
func (s *Store) SetStatus(ctx context.Context, q postgres.Querier, id int64, status string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE comentarios SET estado = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return postgres.ClassifyError("set comment status", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("comment", id)
	}
	return nil
}

// UpdateContent replaces a comment's text and returns it to moderation
func (s *Store) UpdateContent(ctx context.Context, q postgres.Querier, id int64, content string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE comentarios SET contenido = $1, estado = $2, updated_at = NOW() WHERE id = $3`,
		content, StatusPending, id)
	if err != nil {
		return postgres.ClassifyError("update comment", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("comment", id)
	}
	return nil
}

// Delete removes a comment; replies cascade
func (s *Store) Delete(ctx context.Context, q postgres.Querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM comentarios WHERE id = $1`, id)
	if err != nil {
		return postgres.ClassifyError("delete comment", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("comment", id)
	}
	return nil
}
