package postgres

import (
	"errors"
	"strings"
	"syscall"

	"github.com/lib/pq"
	"github.com/platinummonkey/pluma/pkg/apperr"
)

// PostgreSQL error codes the gateway translates
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeInvalidPassword     = "28P01"
	codeInvalidAuthSpec     = "28000"
	codeInvalidCatalogName  = "3D000"
)

// ClassifyError translates a driver error into the apperr taxonomy.
// Constraint violations become ConflictError or ValidationError; connection
// and authentication failures become StorageError with a matching kind.
// nil stays nil, and errors that are already classified pass through.
func ClassifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if apperr.IsValidation(err) || apperr.IsConflict(err) || apperr.IsNotFound(err) ||
		apperr.IsPermissionDenied(err) || apperr.IsInvalidState(err) || apperr.IsStorage(err) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return &apperr.ConflictError{
				Resource: tableResource(pqErr.Table),
				Field:    constraintField(pqErr.Constraint),
			}
		case codeForeignKeyViolation:
			if strings.HasPrefix(op, "delete") {
				return apperr.Conflict(tableResource(pqErr.Table), "%s is still referenced by other records", tableResource(pqErr.Table))
			}
			return apperr.Validation(constraintField(pqErr.Constraint), "references a record that does not exist")
		case codeCheckViolation:
			return apperr.Validation(constraintField(pqErr.Constraint), "violates check constraint")
		case codeInvalidPassword, codeInvalidAuthSpec:
			return &apperr.StorageError{Kind: apperr.StorageAuthFailed, Op: op, Err: err}
		case codeInvalidCatalogName:
			return &apperr.StorageError{Kind: apperr.StorageDatabaseMissing, Op: op, Err: err}
		}
		return &apperr.StorageError{Kind: apperr.StorageQueryFailed, Op: op, Err: err}
	}

	if errors.Is(err, syscall.ECONNREFUSED) || strings.Contains(err.Error(), "connection refused") {
		return &apperr.StorageError{Kind: apperr.StorageConnectionRefused, Op: op, Err: err}
	}
	if strings.Contains(err.Error(), "password authentication failed") {
		return &apperr.StorageError{Kind: apperr.StorageAuthFailed, Op: op, Err: err}
	}
	if strings.Contains(err.Error(), "does not exist") && strings.Contains(err.Error(), "database") {
		return &apperr.StorageError{Kind: apperr.StorageDatabaseMissing, Op: op, Err: err}
	}

	return &apperr.StorageError{Kind: apperr.StorageQueryFailed, Op: op, Err: err}
}

// tableResource maps a table name to the resource name used in messages
func tableResource(table string) string {
	switch table {
	case "posts":
		return "post"
	case "categorias":
		return "category"
	case "roles":
		return "role"
	case "usuarios":
		return "user"
	case "comentarios":
		return "comment"
	case "permisos":
		return "permission"
	case "":
		return "record"
	}
	return table
}

// constraintField extracts the column from a conventional constraint name
// such as posts_slug_key or usuarios_rol_id_fkey.
func constraintField(constraint string) string {
	name := constraint
	for _, suffix := range []string{"_key", "_fkey", "_check"} {
		name = strings.TrimSuffix(name, suffix)
	}
	for _, table := range []string{"posts_", "categorias_", "roles_", "usuarios_", "comentarios_", "permisos_"} {
		if strings.HasPrefix(name, table) {
			return strings.TrimPrefix(name, table)
		}
	}
	return name
}
