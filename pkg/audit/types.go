package audit

import (
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventAuthLogin EventType = "auth.login"

	// Role administration
	EventRoleCreate EventType = "role.create"
	EventRoleUpdate EventType = "role.update"
	EventRoleDelete EventType = "role.delete"

	// Category administration
	EventCategoryCreate EventType = "category.create"
	EventCategoryUpdate EventType = "category.update"
	EventCategoryDelete EventType = "category.delete"

	// User administration
	EventUserRoleAssign EventType = "user.role_assign"
	EventUserDelete     EventType = "user.delete"

	// Comment moderation
	EventCommentApprove EventType = "comment.approve"
	EventCommentReject  EventType = "comment.reject"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource acted on
type ResourceType string

const (
	ResourceRole     ResourceType = "role"
	ResourceCategory ResourceType = "category"
	ResourceUser     ResourceType = "user"
	ResourceComment  ResourceType = "comment"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Acting user; nil for system events
	UserID *int64 `json:"user_id,omitempty"`

	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	RequestID string                 `json:"request_id,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// SearchFilter narrows audit log queries
type SearchFilter struct {
	UserID       *int64
	EventType    EventType
	ResourceType ResourceType
	ResourceID   string
	Since        *time.Time

	Limit  int
	Offset int
}

// RetentionPolicy defines how long audit entries are kept
type RetentionPolicy struct {
	RetentionDays int
}

// DefaultRetentionPolicy keeps entries for 90 days
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{RetentionDays: 90}
}
