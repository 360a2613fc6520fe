package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/platinummonkey/pluma/pkg/contextkeys"
	"github.com/platinummonkey/pluma/pkg/observability"
)

// Logger is the interface for audit sinks
type Logger interface {
	// Log writes an audit event
	Log(ctx context.Context, event *AuditEvent) error

	// Close flushes and releases the sink
	Close() error
}

// NoOpLogger discards every event
type NoOpLogger struct{}

func (NoOpLogger) Log(ctx context.Context, event *AuditEvent) error { return nil }
func (NoOpLogger) Close() error                                      { return nil }

// NewEvent builds a successful event attributed to actorID (0 for system
// events) and stamped with the request id from ctx.
func NewEvent(ctx context.Context, eventType EventType, actorID int64) *AuditEvent {
	event := &AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    EventStatusSuccess,
		RequestID: contextkeys.GetRequestID(ctx),
		Metadata:  make(map[string]interface{}),
	}
	if actorID != 0 {
		id := actorID
		event.UserID = &id
	}
	return event
}

// WithResource sets the resource the event acted on
func (e *AuditEvent) WithResource(resourceType ResourceType, id int64) *AuditEvent {
	e.ResourceType = resourceType
	e.ResourceID = strconv.FormatInt(id, 10)
	return e
}

// WithMessage sets a formatted message
func (e *AuditEvent) WithMessage(format string, args ...interface{}) *AuditEvent {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// WithMetadata adds a metadata entry
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Emit writes event to logger and logs, rather than returns, any failure.
// A nil logger discards the event.
func Emit(ctx context.Context, logger Logger, event *AuditEvent) {
	if logger == nil || event == nil {
		return
	}
	if err := logger.Log(ctx, event); err != nil {
		observability.FromContext(ctx).
			WithError(err).
			WithField("event_type", string(event.EventType)).
			Warn("audit write failed")
	}
}
