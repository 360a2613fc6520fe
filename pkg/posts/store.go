package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/platinummonkey/pluma/pkg/apperr"
	"github.com/platinummonkey/pluma/pkg/storage/postgres"
	"github.com/platinummonkey/pluma/pkg/validation"
)

// Store handles post persistence. Methods take a Querier so the service can
// compose them inside one transaction.
type Store struct{}

// NewStore creates a new post store
func NewStore() *Store {
	return &Store{}
}

const postSelect = `
	SELECT p.id, p.titulo, p.slug, p.extracto, p.contenido, p.imagen_destacada,
		p.usuario_id, u.nombre, p.estado_id, e.nombre, p.fecha_publicacion, p.palabras_clave,
		COALESCE(array_agg(c.id ORDER BY c.nombre) FILTER (WHERE c.id IS NOT NULL), '{}'),
		COALESCE(array_agg(c.nombre ORDER BY c.nombre) FILTER (WHERE c.id IS NOT NULL), '{}'),
		p.created_at, p.updated_at
	FROM posts p
	JOIN usuarios u ON u.id = p.usuario_id
	JOIN estados_publicacion e ON e.id = p.estado_id
	LEFT JOIN posts_categorias pc ON pc.post_id = p.id
	LEFT JOIN categorias c ON c.id = pc.categoria_id
`

const postGroupBy = ` GROUP BY p.id, u.nombre, e.nombre`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*Post, error) {
	var (
		p           Post
		heroImage   sql.NullString
		publishedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &heroImage,
		&p.AuthorID, &p.AuthorName, &p.StatusID, &p.Status, &publishedAt, pq.Array(&p.Keywords),
		pq.Array(&p.CategoryIDs), pq.Array(&p.Categories),
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if heroImage.Valid {
		p.HeroImage = &heroImage.String
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		p.PublishedAt = &t
	}
	if p.Keywords == nil {
		p.Keywords = []string{}
	}
	p.ReadingMinutes = ReadingMinutes(p.Content)
	return &p, nil
}

func scanPosts(rows *sql.Rows) ([]Post, error) {
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, postgres.ClassifyError("scan post", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.ClassifyError("list posts", err)
	}
	return posts, nil
}

// Get retrieves a post by ID
func (s *Store) Get(ctx context.Context, q postgres.Querier, id int64) (*Post, error) {
	p, err := scanPost(q.QueryRowContext(ctx, postSelect+` WHERE p.id = $1`+postGroupBy, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("post", id)
	}
	if err != nil {
		return nil, postgres.ClassifyError("get post", err)
	}
	return p, nil
}

// GetBySlug retrieves a post by slug
func (s *Store) GetBySlug(ctx context.Context, q postgres.Querier, slug string) (*Post, error) {
	p, err := scanPost(q.QueryRowContext(ctx, postSelect+` WHERE p.slug = $1`+postGroupBy, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("post", slug)
	}
	if err != nil {
		return nil, postgres.ClassifyError("get post by slug", err)
	}
	return p, nil
}

// List returns the posts matching filter, newest first
func (s *Store) List(ctx context.Context, q postgres.Querier, filter Filter) ([]Post, error) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.OwnerID != 0 {
		add("p.usuario_id = $%d", filter.OwnerID)
	}
	if filter.AuthorName != "" {
		add("u.nombre ILIKE $%d", "%"+filter.AuthorName+"%")
	}
	if filter.Status != "" {
		add("e.nombre = $%d", filter.Status)
	}
	if len(filter.Categories) > 0 {
		add(`EXISTS (
			SELECT 1 FROM posts_categorias fpc
			JOIN categorias fc ON fc.id = fpc.categoria_id
			WHERE fpc.post_id = p.id AND fc.nombre = ANY($%d))`, pq.Array(filter.Categories))
	}

	query := postSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += postGroupBy + ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.ClassifyError("list posts", err)
	}
	return scanPosts(rows)
}

// ListPublished returns one page of published posts, most recently
// published first, and the total number of published posts
func (s *Store) ListPublished(ctx context.Context, q postgres.Querier, page validation.Page) ([]Post, int, error) {
	var total int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM posts p
		JOIN estados_publicacion e ON e.id = p.estado_id
		WHERE e.nombre = $1`, StatusPublished,
	).Scan(&total)
	if err != nil {
		return nil, 0, postgres.ClassifyError("count published posts", err)
	}

	rows, err := q.QueryContext(ctx,
		postSelect+` WHERE e.nombre = $1`+postGroupBy+
			` ORDER BY p.fecha_publicacion DESC, p.id DESC LIMIT $2 OFFSET $3`,
		StatusPublished, page.Limit, page.Offset(),
	)
	if err != nil {
		return nil, 0, postgres.ClassifyError("list published posts", err)
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// StatusID resolves a status name to its id
func (s *Store) StatusID(ctx context.Context, q postgres.Querier, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM estados_publicacion WHERE nombre = $1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.NotFound("status", name)
	}
	if err != nil {
		return 0, postgres.ClassifyError("get status", err)
	}
	return id, nil
}

// ListStatuses returns the status catalog
func (s *Store) ListStatuses(ctx context.Context, q postgres.Querier) ([]StatusInfo, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, nombre, descripcion FROM estados_publicacion ORDER BY id`)
	if err != nil {
		return nil, postgres.ClassifyError("list statuses", err)
	}
	defer rows.Close()

	statuses := []StatusInfo{}
	for rows.Next() {
		var st StatusInfo
		if err := rows.Scan(&st.ID, &st.Name, &st.Description); err != nil {
			return nil, postgres.ClassifyError("scan status", err)
		}
		statuses = append(statuses, st)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.ClassifyError("list statuses", err)
	}
	return statuses, nil
}

// ListCategories returns the category catalog used by list filters
func (s *Store) ListCategories(ctx context.Context, q postgres.Querier) ([]CategoryInfo, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, nombre, slug, COALESCE(color, '') FROM categorias ORDER BY nombre`)
	if err != nil {
		return nil, postgres.ClassifyError("list categories", err)
	}
	defer rows.Close()

	categories := []CategoryInfo{}
	for rows.Next() {
		var c CategoryInfo
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Color); err != nil {
			return nil, postgres.ClassifyError("scan category", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.ClassifyError("list categories", err)
	}
	return categories, nil
}

// Insert creates a post row and returns its id
func (s *Store) Insert(ctx context.Context, q postgres.Querier, in Input, slug string, authorID, statusID int64) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO posts (titulo, slug, extracto, contenido, imagen_destacada, usuario_id, estado_id, palabras_clave)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		in.Title, slug, in.Excerpt, in.Content, in.HeroImage, authorID, statusID, pq.Array(in.Keywords),
	).Scan(&id)
	if err != nil {
		return 0, postgres.ClassifyError("insert post", err)
	}
	return id, nil
}

// Update overwrites the author-editable columns of a post
func (s *Store) Update(ctx context.Context, q postgres.Querier, id int64, in Input, slug string) error {
	result, err := q.ExecContext(ctx, `
		UPDATE posts
		SET titulo = $1, slug = $2, extracto = $3, contenido = $4,
			imagen_destacada = $5, palabras_clave = $6, updated_at = NOW()
		WHERE id = $7`,
		in.Title, slug, in.Excerpt, in.Content, in.HeroImage, pq.Array(in.Keywords), id,
	)
	if err != nil {
		return postgres.ClassifyError("update post", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("post", id)
	}
	return nil
}

// InsertCategories links a post to each category. An unknown category id
// is a validation error.
func (s *Store) InsertCategories(ctx context.Context, q postgres.Querier, postID int64, categoryIDs []int64) error {
	for _, categoryID := range categoryIDs {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO posts_categorias (post_id, categoria_id) VALUES ($1, $2)`,
			postID, categoryID,
		); err != nil {
			err = postgres.ClassifyError("insert post category", err)
			if apperr.IsValidation(err) {
				return apperr.Validation("categorias", "category %d does not exist", categoryID)
			}
			return err
		}
	}
	return nil
}

// ReplaceCategories deletes every category link of the post and inserts categoryIDs
func (s *Store) ReplaceCategories(ctx context.Context, q postgres.Querier, postID int64, categoryIDs []int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM posts_categorias WHERE post_id = $1`, postID); err != nil {
		return postgres.ClassifyError("delete post categories", err)
	}
	return s.InsertCategories(ctx, q, postID, categoryIDs)
}

// lockedPost is the part of a post a mutation needs to authorize and
// snapshot it
type lockedPost struct {
	OwnerID  int64
	StatusID int64
	Content  string
}

// Lock reads a post's owner, status and content under a row lock
func (s *Store) Lock(ctx context.Context, q postgres.Querier, id int64) (*lockedPost, error) {
	var lp lockedPost
	err := q.QueryRowContext(ctx,
		`SELECT usuario_id, estado_id, contenido FROM posts WHERE id = $1 FOR UPDATE`, id,
	).Scan(&lp.OwnerID, &lp.StatusID, &lp.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("post", id)
	}
	if err != nil {
		return nil, postgres.ClassifyError("lock post", err)
	}
	return &lp, nil
}

// Owner returns the id of the post's author
func (s *Store) Owner(ctx context.Context, q postgres.Querier, id int64) (int64, error) {
	var owner int64
	err := q.QueryRowContext(ctx, `SELECT usuario_id FROM posts WHERE id = $1`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.NotFound("post", id)
	}
	if err != nil {
		return 0, postgres.ClassifyError("get post owner", err)
	}
	return owner, nil
}

// SetStatus moves a post to statusID. fecha_publicacion is set to now when
// published is true and cleared otherwise.
func (s *Store) SetStatus(ctx context.Context, q postgres.Querier, id, statusID int64, published bool) error {
	result, err := q.ExecContext(ctx, `
		UPDATE posts
		SET estado_id = $1,
			fecha_publicacion = CASE WHEN $2::boolean THEN NOW() ELSE NULL END,
			updated_at = NOW()
		WHERE id = $3`,
		statusID, published, id,
	)
	if err != nil {
		return postgres.ClassifyError("set post status", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("post", id)
	}
	return nil
}

// InsertRevision appends a revision row
func (s *Store) InsertRevision(ctx context.Context, q postgres.Querier, postID int64, previous *lockedPost, userID int64, comment *string) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO revisiones_posts (post_id, contenido_anterior, estado_anterior, usuario_id, comentario)
		VALUES ($1, $2, $3, $4, $5)`,
		postID, previous.Content, previous.StatusID, userID, comment,
	); err != nil {
		return postgres.ClassifyError("insert post revision", err)
	}
	return nil
}

// ListRevisions returns a post's revisions, oldest first
func (s *Store) ListRevisions(ctx context.Context, q postgres.Querier, postID int64) ([]Revision, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT r.id, r.post_id, r.contenido_anterior, r.estado_anterior, e.nombre,
			r.usuario_id, u.nombre, r.comentario, r.created_at
		FROM revisiones_posts r
		JOIN estados_publicacion e ON e.id = r.estado_anterior
		JOIN usuarios u ON u.id = r.usuario_id
		WHERE r.post_id = $1
		ORDER BY r.created_at, r.id`, postID)
	if err != nil {
		return nil, postgres.ClassifyError("list post revisions", err)
	}
	defer rows.Close()

	revisions := []Revision{}
	for rows.Next() {
		var (
			rev     Revision
			comment sql.NullString
		)
		if err := rows.Scan(&rev.ID, &rev.PostID, &rev.PreviousContent, &rev.PreviousStatusID, &rev.PreviousStatus,
			&rev.UserID, &rev.UserName, &comment, &rev.CreatedAt); err != nil {
			return nil, postgres.ClassifyError("scan post revision", err)
		}
		if comment.Valid {
			rev.Comment = &comment.String
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.ClassifyError("list post revisions", err)
	}
	return revisions, nil
}

// Delete removes a post; categories, comments and revisions cascade
func (s *Store) Delete(ctx context.Context, q postgres.Querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return postgres.ClassifyError("delete post", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("post", id)
	}
	return nil
}

