package rbac

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/platinummonkey/pluma/pkg/apperr"
	"github.com/platinummonkey/pluma/pkg/storage/postgres"
)

// Store handles role and permission persistence. Methods take a Querier so
// the service can compose them inside one transaction.
type Store struct{}

// NewStore creates a new RBAC store
func NewStore() *Store {
	return &Store{}
}

const roleSelect = `
	SELECT r.id, r.nombre, r.descripcion,
		COALESCE(array_agg(p.nombre ORDER BY p.nombre) FILTER (WHERE p.nombre IS NOT NULL), '{}'),
		(SELECT COUNT(*) FROM usuarios u WHERE u.rol_id = r.id)
	FROM roles r
	LEFT JOIN roles_permisos rp ON rp.rol_id = r.id
	LEFT JOIN permisos p ON p.id = rp.permiso_id
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRole(row rowScanner) (*Role, error) {
	var role Role
	var names []string
	if err := row.Scan(&role.ID, &role.Name, &role.Description, pq.Array(&names), &role.UserCount); err != nil {
		return nil, err
	}
	role.Permissions = make([]Permission, len(names))
	for i, n := range names {
		role.Permissions[i] = Permission(n)
	}
	return &role, nil
}

// ListRoles returns every role with its permission names
func (s *Store) ListRoles(ctx context.Context, q postgres.Querier) ([]Role, error) {
	rows, err := q.QueryContext(ctx, roleSelect+` GROUP BY r.id ORDER BY r.id`)
	if err != nil {
		return nil, postgres.ClassifyError("list roles", err)
	}
	defer rows.Close()

	roles := []Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, postgres.ClassifyError("scan role", err)
		}
		roles = append(roles, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.ClassifyError("list roles", err)
	}
	return roles, nil
}

// GetRole retrieves a role by ID
func (s *Store) GetRole(ctx context.Context, q postgres.Querier, roleID int64) (*Role, error) {
	role, err := scanRole(q.QueryRowContext(ctx, roleSelect+` WHERE r.id = $1 GROUP BY r.id`, roleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("role", roleID)
	}
	if err != nil {
		return nil, postgres.ClassifyError("get role", err)
	}
	return role, nil
}

// RoleIDByName resolves a role name to its id
func (s *Store) RoleIDByName(ctx context.Context, q postgres.Querier, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM roles WHERE nombre = $1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.NotFound("role", name)
	}
	if err != nil {
		return 0, postgres.ClassifyError("get role by name", err)
	}
	return id, nil
}

// ListPermissions returns the permission catalog
func (s *Store) ListPermissions(ctx context.Context, q postgres.Querier) ([]PermissionInfo, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, nombre, descripcion FROM permisos ORDER BY id`)
	if err != nil {
		return nil, postgres.ClassifyError("list permissions", err)
	}
	defer rows.Close()

	perms := []PermissionInfo{}
	for rows.Next() {
		var p PermissionInfo
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, postgres.ClassifyError("scan permission", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.ClassifyError("list permissions", err)
	}
	return perms, nil
}

// ResolvePermissionIDs maps permission names to catalog ids. Any name
// missing from the catalog fails with ValidationError.
func (s *Store) ResolvePermissionIDs(ctx context.Context, q postgres.Querier, names []string) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}

	rows, err := q.QueryContext(ctx, `SELECT id, nombre FROM permisos WHERE nombre = ANY($1)`, pq.Array(names))
	if err != nil {
		return nil, postgres.ClassifyError("resolve permissions", err)
	}
	defer rows.Close()

	found := make(map[string]int64, len(names))
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, postgres.ClassifyError("scan permission", err)
		}
		found[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.ClassifyError("resolve permissions", err)
	}

	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, ok := found[name]
		if !ok {
			return nil, apperr.Validation("permisos", "unknown permission %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// InsertRole creates a role row and returns its id
func (s *Store) InsertRole(ctx context.Context, q postgres.Querier, name, description string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO roles (nombre, descripcion) VALUES ($1, $2) RETURNING id`,
		name, description,
	).Scan(&id)
	if err != nil {
		return 0, postgres.ClassifyError("insert role", err)
	}
	return id, nil
}

// UpdateRole overwrites a role's name and description
func (s *Store) UpdateRole(ctx context.Context, q postgres.Querier, roleID int64, name, description string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE roles SET nombre = $1, descripcion = $2 WHERE id = $3`,
		name, description, roleID,
	)
	if err != nil {
		return postgres.ClassifyError("update role", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("role", roleID)
	}
	return nil
}

// ReplacePermissions deletes every permission link of the role and inserts permissionIDs
func (s *Store) ReplacePermissions(ctx context.Context, q postgres.Querier, roleID int64, permissionIDs []int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM roles_permisos WHERE rol_id = $1`, roleID); err != nil {
		return postgres.ClassifyError("delete role permissions", err)
	}
	for _, permID := range permissionIDs {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO roles_permisos (rol_id, permiso_id) VALUES ($1, $2)`,
			roleID, permID,
		); err != nil {
			return postgres.ClassifyError("insert role permission", err)
		}
	}
	return nil
}

// LockRole reads a role name under a row lock
func (s *Store) LockRole(ctx context.Context, q postgres.Querier, roleID int64) (string, error) {
	var name string
	err := q.QueryRowContext(ctx, `SELECT nombre FROM roles WHERE id = $1 FOR UPDATE`, roleID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("role", roleID)
	}
	if err != nil {
		return "", postgres.ClassifyError("lock role", err)
	}
	return name, nil
}

// CountUsers returns how many users hold the role
func (s *Store) CountUsers(ctx context.Context, q postgres.Querier, roleID int64) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM usuarios WHERE rol_id = $1`, roleID).Scan(&count); err != nil {
		return 0, postgres.ClassifyError("count role users", err)
	}
	return count, nil
}

// DeleteRole removes the role's permission links and then the role
func (s *Store) DeleteRole(ctx context.Context, q postgres.Querier, roleID int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM roles_permisos WHERE rol_id = $1`, roleID); err != nil {
		return postgres.ClassifyError("delete role permissions", err)
	}
	result, err := q.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, roleID)
	if err != nil {
		return postgres.ClassifyError("delete role", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("role", roleID)
	}
	return nil
}

// EnsureRole inserts a built-in role and its seed permissions when no role
// of that name exists. An existing role is left untouched so administrator
// edits survive restarts. created is false when the role was already there.
func (s *Store) EnsureRole(ctx context.Context, q postgres.Querier, role Role) (created bool, err error) {
	var id int64
	err = q.QueryRowContext(ctx,
		`INSERT INTO roles (nombre, descripcion) VALUES ($1, $2) ON CONFLICT (nombre) DO NOTHING RETURNING id`,
		role.Name, role.Description,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, postgres.ClassifyError("ensure role", err)
	}

	names := make([]string, len(role.Permissions))
	for i, p := range role.Permissions {
		names[i] = string(p)
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO roles_permisos (rol_id, permiso_id)
		SELECT $1, id FROM permisos WHERE nombre = ANY($2)
		ON CONFLICT DO NOTHING`,
		id, pq.Array(names),
	); err != nil {
		return false, postgres.ClassifyError("ensure role permissions", err)
	}
	return true, nil
}
