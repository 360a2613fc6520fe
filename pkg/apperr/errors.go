// Package apperr defines the error taxonomy shared by the content engines.
//
// Engines return these typed errors (possibly wrapped with %w); the HTTP
// layer maps them to status codes via the IsX helpers.
package apperr

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned when an operation needs a principal and
// none was resolved
var ErrUnauthenticated = errors.New("authentication required")

// ValidationError reports malformed or missing input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Validation creates a validation error for a field
func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PermissionDeniedError reports a failed authorization check
type PermissionDeniedError struct {
	Action string
}

func (e *PermissionDeniedError) Error() string {
	if e.Action == "" {
		return "permission denied"
	}
	return "permission denied: " + e.Action
}

// PermissionDenied creates a permission denied error for an action
func PermissionDenied(action string) error {
	return &PermissionDeniedError{Action: action}
}

// NotFoundError reports that a referenced entity does not resolve
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found: %v", e.Resource, e.ID)
}

// NotFound creates a not found error
func NotFound(resource string, id interface{}) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError reports a uniqueness or reference conflict
type ConflictError struct {
	Resource string
	Field    string
	Message  string
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Field != "" {
		return fmt.Sprintf("%s with this %s already exists", e.Resource, e.Field)
	}
	return e.Resource + " conflict"
}

// Conflict creates a conflict error with a message
func Conflict(resource, format string, args ...interface{}) error {
	return &ConflictError{Resource: resource, Message: fmt.Sprintf(format, args...)}
}

// InvalidStateError reports an operation that is not allowed in the current state
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string {
	return e.Message
}

// InvalidState creates an invalid state error
func InvalidState(format string, args ...interface{}) error {
	return &InvalidStateError{Message: fmt.Sprintf(format, args...)}
}

// StorageKind classifies a storage failure
type StorageKind string

const (
	StorageAuthFailed        StorageKind = "auth_failed"
	StorageConnectionRefused StorageKind = "connection_refused"
	StorageDatabaseMissing   StorageKind = "database_missing"
	StorageQueryFailed       StorageKind = "query_failed"
)

// StorageError wraps a driver or transaction failure
type StorageError struct {
	Kind StorageKind
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	var msg string
	switch e.Kind {
	case StorageAuthFailed:
		msg = "database authentication failed"
	case StorageConnectionRefused:
		msg = "database connection refused"
	case StorageDatabaseMissing:
		msg = "database does not exist"
	default:
		msg = "database query failed"
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsPermissionDenied checks if an error is a permission denied error
func IsPermissionDenied(err error) bool {
	var target *PermissionDeniedError
	return errors.As(err, &target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsInvalidState checks if an error is an invalid state error
func IsInvalidState(err error) bool {
	var target *InvalidStateError
	return errors.As(err, &target)
}

// IsStorage checks if an error is a storage error
func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}

// StorageKindOf returns the kind of a storage error, or "" if err is not one
func StorageKindOf(err error) StorageKind {
	var target *StorageError
	if errors.As(err, &target) {
		return target.Kind
	}
	return ""
}
