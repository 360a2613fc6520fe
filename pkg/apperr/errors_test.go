package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHelpersSeeThroughWrapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", Validation("titulo", "is required"), IsValidation},
		{"permission", PermissionDenied("update post"), IsPermissionDenied},
		{"not found", NotFound("post", int64(4)), IsNotFound},
		{"conflict", Conflict("post", "slug already in use"), IsConflict},
		{"invalid state", InvalidState("post is not published"), IsInvalidState},
		{"storage", &StorageError{Kind: StorageQueryFailed, Err: errors.New("boom")}, IsStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(wrapped))
			assert.False(t, tt.check(errors.New("plain")))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "titulo: is required", Validation("titulo", "is required").Error())
	assert.Equal(t, "permission denied: delete post", PermissionDenied("delete post").Error())
	assert.Equal(t, "post not found: 12", NotFound("post", 12).Error())
	assert.Equal(t, "category not found", NotFound("category", nil).Error())
	assert.Equal(t, "post with this slug already exists", (&ConflictError{Resource: "post", Field: "slug"}).Error())
}

func TestStorageError(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	err := &StorageError{Kind: StorageConnectionRefused, Op: "create post", Err: cause}

	assert.Equal(t, "create post: database connection refused: "+cause.Error(), err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StorageConnectionRefused, StorageKindOf(fmt.Errorf("wrap: %w", err)))
	assert.Equal(t, StorageKind(""), StorageKindOf(cause))
}
