package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DBLogger writes audit events to the audit_logs table
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a database-backed audit logger. The table is created
// by the schema migrations.
func NewDBLogger(db *sql.DB) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &DBLogger{db: db}, nil
}

// Log inserts an audit event and sets its ID
func (l *DBLogger) Log(ctx context.Context, event *AuditEvent) error {
	var metadataJSON []byte
	if len(event.Metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	err := l.db.QueryRowContext(ctx, `
		INSERT INTO audit_logs (
			timestamp, event_type, status, user_id,
			resource_type, resource_id, request_id, message, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		event.Timestamp, string(event.EventType), string(event.Status), event.UserID,
		string(event.ResourceType), event.ResourceID, event.RequestID, event.Message, metadataJSON,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// Search returns events matching filter, newest first
func (l *DBLogger) Search(ctx context.Context, filter SearchFilter) ([]*AuditEvent, error) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != nil {
		add("user_id = $%d", *filter.UserID)
	}
	if filter.EventType != "" {
		add("event_type = $%d", string(filter.EventType))
	}
	if filter.ResourceType != "" {
		add("resource_type = $%d", string(filter.ResourceType))
	}
	if filter.ResourceID != "" {
		add("resource_id = $%d", filter.ResourceID)
	}
	if filter.Since != nil {
		add("timestamp >= $%d", *filter.Since)
	}

	query := `
		SELECT id, timestamp, event_type, status, user_id,
			COALESCE(resource_type, ''), COALESCE(resource_id, ''),
			COALESCE(request_id, ''), COALESCE(message, ''), metadata
		FROM audit_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY timestamp DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit logs: %w", err)
	}
	defer rows.Close()

	events := []*AuditEvent{}
	for rows.Next() {
		var (
			event        AuditEvent
			eventType    string
			status       string
			resourceType string
			userID       sql.NullInt64
			metadata     []byte
		)
		if err := rows.Scan(&event.ID, &event.Timestamp, &eventType, &status, &userID,
			&resourceType, &event.ResourceID, &event.RequestID, &event.Message, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		event.EventType = EventType(eventType)
		event.Status = EventStatus(status)
		event.ResourceType = ResourceType(resourceType)
		if userID.Valid {
			id := userID.Int64
			event.UserID = &id
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode audit metadata: %w", err)
			}
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// Cleanup deletes entries older than the retention window
func (l *DBLogger) Cleanup(ctx context.Context, policy RetentionPolicy) (int64, error) {
	if policy.RetentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive")
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -policy.RetentionDays)

	result, err := l.db.ExecContext(ctx, "DELETE FROM audit_logs WHERE timestamp < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit logs: %w", err)
	}
	return result.RowsAffected()
}

// Close is a no-op; the pool is owned by the caller
func (l *DBLogger) Close() error {
	return nil
}
