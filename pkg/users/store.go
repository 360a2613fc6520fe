package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/platinummonkey/pluma/pkg/apperr"
	"github.com/platinummonkey/pluma/pkg/storage/postgres"
	"github.com/platinummonkey/pluma/pkg/validation"
)

// Store handles user persistence
type Store struct{}

// NewStore creates a new user store
func NewStore() *Store {
	return &Store{}
}

const userSelect = `
	SELECT u.id, u.external_id, u.nombre, u.email, u.rol_id, r.nombre, u.created_at, u.updated_at
	FROM usuarios u
	JOIN roles r ON r.id = u.rol_id
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.ExternalID, &u.Name, &u.Email, &u.RoleID, &u.RoleName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Get retrieves a user by ID
func (s *Store) Get(ctx context.Context, q postgres.Querier, id int64) (*User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, userSelect+` WHERE u.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user", id)
	}
	if err != nil {
		return nil, postgres.ClassifyError("get user", err)
	}
	return u, nil
}

// GetByExternalID retrieves a user by identity provider subject
func (s *Store) GetByExternalID(ctx context.Context, q postgres.Querier, externalID string) (*User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, userSelect+` WHERE u.external_id = $1`, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user", externalID)
	}
	if err != nil {
		return nil, postgres.ClassifyError("get user by external id", err)
	}
	return u, nil
}

// List returns one page of users ordered by name, and the total count
func (s *Store) List(ctx context.Context, q postgres.Querier, page validation.Page) ([]User, int, error) {
	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM usuarios`).Scan(&total); err != nil {
		return nil, 0, postgres.ClassifyError("count users", err)
	}

	rows, err := q.QueryContext(ctx, userSelect+` ORDER BY u.nombre, u.id LIMIT $1 OFFSET $2`, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, postgres.ClassifyError("list users", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, postgres.ClassifyError("scan user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, postgres.ClassifyError("list users", err)
	}
	return users, total, nil
}

// UpsertIdentity creates the user for externalID with roleID, or refreshes
// name and email of the existing row without touching its role. created
// reports whether a row was inserted.
func (s *Store) UpsertIdentity(ctx context.Context, q postgres.Querier, externalID, name, email string, roleID int64) (id int64, created bool, err error) {
	err = q.QueryRowContext(ctx, `
		INSERT INTO usuarios (external_id, nombre, email, rol_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO UPDATE
			SET nombre = EXCLUDED.nombre, email = EXCLUDED.email, updated_at = NOW()
		RETURNING id, (xmax = 0)`,
		externalID, name, email, roleID,
	).Scan(&id, &created)
	if err != nil {
		return 0, false, postgres.ClassifyError("upsert user", err)
	}
	return id, created, nil
}

// Lock reads a user's role under a row lock
func (s *Store) Lock(ctx context.Context, q postgres.Querier, id int64) (int64, error) {
	var roleID int64
	err := q.QueryRowContext(ctx, `SELECT rol_id FROM usuarios WHERE id = $1 FOR UPDATE`, id).Scan(&roleID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.NotFound("user", id)
	}
	if err != nil {
		return 0, postgres.ClassifyError("lock user", err)
	}
	return roleID, nil
}

// SetRole changes the user's role
func (s *Store) SetRole(ctx context.Context, q postgres.Querier, id, roleID int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE usuarios SET rol_id = $1, updated_at = NOW() WHERE id = $2`,
		roleID, id,
	)
	if err != nil {
		return postgres.ClassifyError("update user role", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("user", id)
	}
	return nil
}

// CountOwnedContent returns how many posts and comments the user owns
func (s *Store) CountOwnedContent(ctx context.Context, q postgres.Querier, id int64) (posts, comments int, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM posts WHERE usuario_id = $1),
			(SELECT COUNT(*) FROM comentarios WHERE usuario_id = $1)`,
		id,
	).Scan(&posts, &comments)
	if err != nil {
		return 0, 0, postgres.ClassifyError("count user content", err)
	}
	return posts, comments, nil
}

// Delete removes a user row
func (s *Store) Delete(ctx context.Context, q postgres.Querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM usuarios WHERE id = $1`, id)
	if err != nil {
		return postgres.ClassifyError("delete user", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("user", id)
	}
	return nil
}
