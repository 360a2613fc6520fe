// Package rbac provides the permission model and role administration.
//
// # Overview
//
// Every user holds exactly one role, and a role is a named set of
// permissions drawn from a fixed catalog seeded with the schema:
//
//	crear_post             create posts
//	editar_post_propio     edit own posts
//	editar_post_cualquiera edit any post
//	publicar_post          publish posts
//	eliminar_post          delete posts
//	asignar_roles          manage roles and users
//	crear_categoria        create categories
//	editar_categoria       edit categories
//	eliminar_categoria     delete categories
//	comentar               comment on published posts
//
// There is no role hierarchy. Holding asignar_roles makes a principal an
// administrator, and Principal.IsAdministrator is the only place that rule
// is spelled out.
//
// # Principals
//
// A Principal is the authenticated user plus a snapshot of its role's
// permissions, loaded per request by Loader:
//
//	principal, err := rbac.NewLoader(db).LoadByExternalID(ctx, subject)
//	ctx = rbac.WithPrincipal(ctx, principal)
//
// Engines receive the principal explicitly and call the Authorize helpers:
//
//	if err := rbac.Authorize(p, rbac.PermissionCreatePost); err != nil {
//		return err // *apperr.PermissionDeniedError
//	}
//
//	// owner with editar_post_propio, or editar_post_cualquiera, or admin
//	err := rbac.AuthorizeOwned(p, post.UserID, "update post",
//		rbac.PermissionEditOwnPost, rbac.PermissionEditAnyPost)
//
// # Role administration
//
// Service implements role CRUD. Updates replace the permission set
// wholesale inside one transaction, and unknown permission names fail the
// call before any row is written. A role still held by users cannot be
// deleted, nor can the default role given to new users.
//
// # HTTP
//
// PermissionMiddleware gates routes on the request principal:
//
//	pm := rbac.NewPermissionMiddleware(metrics)
//	router.Handle("/api/posts", pm.RequirePermission(rbac.PermissionCreatePost)(h))
//
// Handlers exposes /roles and /permissions.
package rbac
