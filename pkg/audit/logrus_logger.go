package audit

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// LogrusLogger writes audit events as JSON lines through logrus
type LogrusLogger struct {
	logger *logrus.Logger
}

// NewLogrusLogger creates a logrus sink writing JSON to out
func NewLogrusLogger(out io.Writer) *LogrusLogger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	return &LogrusLogger{logger: logger}
}

// NewLogrusLoggerFrom wraps an existing logrus logger
func NewLogrusLoggerFrom(logger *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{logger: logger}
}

// Log writes the event at INFO (WARN when it did not succeed)
func (l *LogrusLogger) Log(ctx context.Context, event *AuditEvent) error {
	fields := logrus.Fields{
		"audit":      true,
		"event_type": string(event.EventType),
		"status":     string(event.Status),
		"timestamp":  event.Timestamp,
	}
	if event.UserID != nil {
		fields["user_id"] = *event.UserID
	}
	if event.ResourceType != "" {
		fields["resource_type"] = string(event.ResourceType)
		fields["resource_id"] = event.ResourceID
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	for k, v := range event.Metadata {
		fields["meta_"+k] = v
	}

	entry := l.logger.WithContext(ctx).WithFields(fields)
	if event.Status == EventStatusSuccess {
		entry.Info(event.Message)
	} else {
		entry.Warn(event.Message)
	}
	return nil
}

// Close is a no-op
func (l *LogrusLogger) Close() error {
	return nil
}
