package audit

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var auditColumns = []string{
	"id", "timestamp", "event_type", "status", "user_id",
	"resource_type", "resource_id", "request_id", "message", "metadata",
}

func TestNewDBLogger(t *testing.T) {
	db, _ := setupMockDB(t)

	logger, err := NewDBLogger(db)
	require.NoError(t, err)
	assert.NotNil(t, logger)

	logger, err = NewDBLogger(nil)
	assert.Error(t, err)
	assert.Nil(t, logger)
}

func TestDBLogger_Log(t *testing.T) {
	db, mock := setupMockDB(t)
	logger, err := NewDBLogger(db)
	require.NoError(t, err)

	event := NewEvent(context.Background(), EventCategoryCreate, 1).
		WithResource(ResourceCategory, 5).
		WithMessage("category %q created", "Go").
		WithMetadata("slug", "go")

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO audit_logs`)).
		WithArgs(sqlmock.AnyArg(), "category.create", "success", sqlmock.AnyArg(),
			"category", "5", "", `category "Go" created`, []byte(`{"slug":"go"}`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	require.NoError(t, logger.Log(context.Background(), event))
	assert.Equal(t, int64(42), event.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDBLogger_Log_Error(t *testing.T) {
	db, mock := setupMockDB(t)
	logger, err := NewDBLogger(db)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO audit_logs`)).
		WillReturnError(errors.New("disk full"))

	err = logger.Log(context.Background(), NewEvent(context.Background(), EventAuthLogin, 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert audit log")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDBLogger_Search(t *testing.T) {
	db, mock := setupMockDB(t)
	logger, err := NewDBLogger(db)
	require.NoError(t, err)

	userID := int64(1)
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		`WHERE user_id = $1 AND event_type = $2 AND timestamp >= $3 ORDER BY timestamp DESC, id DESC LIMIT $4 OFFSET $5`)).
		WithArgs(userID, "comment.approve", since, 100, 20).
		WillReturnRows(sqlmock.NewRows(auditColumns).
			AddRow(7, ts, "comment.approve", "success", 1, "comment", "30", "req-1", "approved", []byte(`{"estado_anterior":"pendiente"}`)).
			AddRow(6, ts, "comment.approve", "success", nil, "", "", "", "", nil))

	events, err := logger.Search(context.Background(), SearchFilter{
		UserID:    &userID,
		EventType: EventCommentApprove,
		Since:     &since,
		Limit:     1000,
		Offset:    20,
	})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, EventCommentApprove, events[0].EventType)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, int64(1), *events[0].UserID)
	assert.Equal(t, "pendiente", events[0].Metadata["estado_anterior"])

	assert.Nil(t, events[1].UserID)
	assert.Nil(t, events[1].Metadata)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDBLogger_Search_BadMetadata(t *testing.T) {
	db, mock := setupMockDB(t)
	logger, err := NewDBLogger(db)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM audit_logs ORDER BY`)).
		WithArgs(100, 0).
		WillReturnRows(sqlmock.NewRows(auditColumns).
			AddRow(1, time.Now(), "auth.login", "success", 1, "", "", "", "", []byte(`{`)))

	_, err = logger.Search(context.Background(), SearchFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode audit metadata")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDBLogger_Cleanup(t *testing.T) {
	db, mock := setupMockDB(t)
	logger, err := NewDBLogger(db)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM audit_logs WHERE timestamp < $1`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 12))

	deleted, err := logger.Cleanup(context.Background(), DefaultRetentionPolicy())
	require.NoError(t, err)
	assert.Equal(t, int64(12), deleted)

	_, err = logger.Cleanup(context.Background(), RetentionPolicy{RetentionDays: 0})
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
