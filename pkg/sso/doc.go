// Package sso connects the service to an external OpenID Connect identity
// provider.
//
// The provider owns sign-in and sessions. This package only:
//
//	verifies ID tokens presented as bearer tokens (OIDCVerifier)
//	runs the authorization-code login flow (Handlers)
//	reconciles the asserted identity into a local user (UserProvisioner)
//
// # Token verification
//
// OIDCVerifier checks signature, issuer, audience and expiry with
// go-oidc, then caches the mapped identity in an expiring LRU keyed by the
// token hash. A cached entry is never served past the token's own expiry.
//
// # Identity sync
//
// SyncPrincipal requires external id, first name, last name and a valid
// email. The email is trimmed and lowercased and the display name is
// "first last". The first sync creates the user with the default role;
// later syncs refresh name and email and keep whatever role an
// administrator assigned.
//
//	provisioner := sso.NewUserProvisioner(db, "comentador", metrics)
//	user, created, err := provisioner.SyncPrincipal(ctx, sso.ExternalUser{
//		ExternalID: "user_2abc",
//		FirstName:  "Ana",
//		LastName:   "Pérez",
//		Email:      "Ana@Example.com",
//	})
package sso
