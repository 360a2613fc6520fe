// Package users manages local user records.
//
// Users are created by identity sync on first sign-in and hold exactly one
// role. Administrators (holders of asignar_roles) list users, change their
// role and delete them; a user still owning posts or comments cannot be
// deleted. Any principal can read its own record through Me.
package users
