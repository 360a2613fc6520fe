// Package comments implements threaded comments and their moderation.
//
// Comments are accepted only on published posts and start out pendiente.
// Administrators move them to aprobado or rechazado; only approved comments
// are shown to the public. A reply references its parent by id and must
// belong to the same post; deleting a comment deletes its replies.
package comments
