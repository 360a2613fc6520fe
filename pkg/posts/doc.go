// Package posts implements the post lifecycle: authoring, the publication
// state machine and the revision log.
//
// A post starts in borrador. A status change names its target rather than an
// edge, so any authorized target may follow any state:
//
//	borrador -> en_revision -> publicado | rechazado -> archivado
//
// Entering publicado or rechazado requires an administrator. Every other
// target requires edit rights on the post. fecha_publicacion is set when
// a post enters publicado and cleared for every other status. Each status change
// appends one row to revisiones_posts in the same transaction as the change.
//
// Reads are scoped inside the service: principals without
// editar_post_cualquiera only ever list their own posts, and see other
// users' posts only once published.
package posts
