package rbac

import (
	"context"
	"database/sql"
	"errors"

	"github.com/platinummonkey/pluma/pkg/apperr"
	"github.com/platinummonkey/pluma/pkg/storage/postgres"
)

// Loader resolves a local user into a Principal carrying the permission
// snapshot of the user's role. Every call re-reads storage.
type Loader struct {
	db postgres.Querier
}

// NewLoader creates a principal loader
func NewLoader(db postgres.Querier) *Loader {
	return &Loader{db: db}
}

const principalSelect = `
	SELECT u.id, u.external_id, u.nombre, u.email, u.rol_id, r.nombre
	FROM usuarios u
	JOIN roles r ON r.id = u.rol_id
`

// LoadByExternalID loads the principal for an identity provider subject
func (l *Loader) LoadByExternalID(ctx context.Context, externalID string) (*Principal, error) {
	return l.load(ctx, principalSelect+` WHERE u.external_id = $1`, externalID)
}

// LoadByUserID loads the principal for a local user id
func (l *Loader) LoadByUserID(ctx context.Context, userID int64) (*Principal, error) {
	return l.load(ctx, principalSelect+` WHERE u.id = $1`, userID)
}

func (l *Loader) load(ctx context.Context, query string, key interface{}) (*Principal, error) {
	var (
		userID, roleID               int64
		externalID, name, email, rol string
	)
	err := l.db.QueryRowContext(ctx, query, key).Scan(&userID, &externalID, &name, &email, &roleID, &rol)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user", key)
	}
	if err != nil {
		return nil, postgres.ClassifyError("load principal", err)
	}

	perms, err := l.rolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}

	p := NewPrincipal(userID, roleID, rol, perms)
	p.ExternalID = externalID
	p.Name = name
	p.Email = email
	return p, nil
}

func (l *Loader) rolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT p.nombre
		FROM roles_permisos rp
		JOIN permisos p ON p.id = rp.permiso_id
		WHERE rp.rol_id = $1
		ORDER BY p.nombre`,
		roleID,
	)
	if err != nil {
		return nil, postgres.ClassifyError("load role permissions", err)
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, postgres.ClassifyError("scan permission", err)
		}
		perms = append(perms, Permission(name))
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.ClassifyError("load role permissions", err)
	}
	return perms, nil
}
