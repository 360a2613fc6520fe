package sso

import (
	"context"
	"database/sql"
	"strings"

	"github.com/platinummonkey/pluma/pkg/apperr"
	"github.com/platinummonkey/pluma/pkg/observability"
	"github.com/platinummonkey/pluma/pkg/rbac"
	"github.com/platinummonkey/pluma/pkg/storage/postgres"
	"github.com/platinummonkey/pluma/pkg/users"
	"github.com/platinummonkey/pluma/pkg/validation"
)

// UserProvisioner handles JIT (Just-In-Time) user provisioning
type UserProvisioner struct {
	db          *sql.DB
	users       *users.Store
	roles       *rbac.Store
	defaultRole string
	metrics     *observability.Metrics
}

// NewUserProvisioner creates a new user provisioner. New users get
// defaultRole; metrics may be nil.
func NewUserProvisioner(db *sql.DB, defaultRole string, metrics *observability.Metrics) *UserProvisioner {
	if defaultRole == "" {
		defaultRole = rbac.DefaultRoleName
	}
	return &UserProvisioner{
		db:          db,
		users:       users.NewStore(),
		roles:       rbac.NewStore(),
		defaultRole: defaultRole,
		metrics:     metrics,
	}
}

// normalize trims every field and lowercases the email, then checks the
// record is complete.
func normalize(ext ExternalUser) (ExternalUser, error) {
	ext.ExternalID = strings.TrimSpace(ext.ExternalID)
	ext.FirstName = strings.TrimSpace(ext.FirstName)
	ext.LastName = strings.TrimSpace(ext.LastName)
	ext.Email = validation.NormalizeEmail(ext.Email)

	v := validation.New().
		Required("external_id", ext.ExternalID).
		Required("first_name", ext.FirstName).
		Required("last_name", ext.LastName).
		Required("email", ext.Email).
		Email("email", ext.Email).
		MaxLength("nombre", ext.DisplayName(), validation.MaxUserNameLength)
	return ext, v.Err()
}

// SyncPrincipal reconciles an external identity into the local user table.
// Unknown identities are created with the default role; known ones get
// their name and email refreshed and keep their role.
func (p *UserProvisioner) SyncPrincipal(ctx context.Context, ext ExternalUser) (*users.User, bool, error) {
	ext, err := normalize(ext)
	if err != nil {
		return nil, false, err
	}

	var (
		userID  int64
		created bool
	)
	err = postgres.WithTx(ctx, p.db, "sync principal", func(tx *sql.Tx) error {
		roleID, err := p.roles.RoleIDByName(ctx, tx, p.defaultRole)
		if apperr.IsNotFound(err) {
			return apperr.InvalidState("default role %q is not configured", p.defaultRole)
		}
		if err != nil {
			return err
		}
		userID, created, err = p.users.UpsertIdentity(ctx, tx, ext.ExternalID, ext.DisplayName(), ext.Email, roleID)
		return err
	})
	if err != nil {
		p.metrics.RecordIdentitySync("error")
		return nil, false, err
	}

	if created {
		p.metrics.RecordIdentitySync("created")
	} else {
		p.metrics.RecordIdentitySync("updated")
	}

	user, err := p.users.Get(ctx, p.db, userID)
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}
