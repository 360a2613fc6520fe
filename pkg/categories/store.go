package categories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/platinummonkey/pluma/pkg/apperr"
	"github.com/platinummonkey/pluma/pkg/storage/postgres"
)

// Store handles category persistence
type Store struct{}

// NewStore creates a new category store
func NewStore() *Store {
	return &Store{}
}

const categorySelect = `
	SELECT c.id, c.nombre, c.descripcion, c.slug, c.color, c.icono,
		COUNT(pc.post_id), c.created_at, c.updated_at
	FROM categorias c
	LEFT JOIN posts_categorias pc ON pc.categoria_id = c.id
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCategory(row rowScanner) (*Category, error) {
	var c Category
	var color, icon sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Slug, &color, &icon,
		&c.PostCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if color.Valid {
		c.Color = &color.String
	}
	if icon.Valid {
		c.Icon = &icon.String
	}
	return &c, nil
}

// List returns every category ordered by name
func (s *Store) List(ctx context.Context, q postgres.Querier) ([]Category, error) {
	rows, err := q.QueryContext(ctx, categorySelect+` GROUP BY c.id ORDER BY c.nombre`)
	if err != nil {
		return nil, postgres.ClassifyError("list categories", err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, postgres.ClassifyError("scan category", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.ClassifyError("list categories", err)
	}
	return categories, nil
}

// Get retrieves a category by ID
func (s *Store) Get(ctx context.Context, q postgres.Querier, id int64) (*Category, error) {
	c, err := scanCategory(q.QueryRowContext(ctx, categorySelect+` WHERE c.id = $1 GROUP BY c.id`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("category", id)
	}
	if err != nil {
		return nil, postgres.ClassifyError("get category", err)
	}
	return c, nil
}

// Insert creates a category row and returns its id
func (s *Store) Insert(ctx context.Context, q postgres.Querier, in Input, slug string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO categorias (nombre, descripcion, slug, color, icono)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		in.Name, in.Description, slug, in.Color, in.Icon,
	).Scan(&id)
	if err != nil {
		return 0, postgres.ClassifyError("insert category", err)
	}
	return id, nil
}

// Update overwrites every mutable column of a category
func (s *Store) Update(ctx context.Context, q postgres.Querier, id int64, in Input, slug string) error {
	result, err := q.ExecContext(ctx, `
		UPDATE categorias
		SET nombre = $1, descripcion = $2, slug = $3, color = $4, icono = $5, updated_at = NOW()
		WHERE id = $6`,
		in.Name, in.Description, slug, in.Color, in.Icon, id,
	)
	if err != nil {
		return postgres.ClassifyError("update category", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("category", id)
	}
	return nil
}

// Delete removes a category. Its post associations go with it through the
// foreign key cascade; the posts stay.
func (s *Store) Delete(ctx context.Context, q postgres.Querier, id int64) (string, error) {
	var name string
	err := q.QueryRowContext(ctx, `DELETE FROM categorias WHERE id = $1 RETURNING nombre`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("category", id)
	}
	if err != nil {
		return "", postgres.ClassifyError("delete category", err)
	}
	return name, nil
}
