package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/filetrackhq/filetrack-api/internal/models"
)

func newExtensionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestExtensionRepositoryCreateDefaultsPending(t *testing.T) {
	db, mock, cleanup := newExtensionRepoMock(t)
	defer cleanup()

	repo := NewExtensionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO extension_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.ExtensionRequest{
		FileID:         "file-1",
		RequestedByID:  "user-1",
		ApproverID:     "user-2",
		Reason:         "awaiting external report",
		AdditionalTime: 2 * 86400,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	require.NotEmpty(t, req.ID)
	require.Equal(t, models.ExtensionStatusPending, req.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExtensionRepositoryResolveOneShot(t *testing.T) {
	db, mock, cleanup := newExtensionRepoMock(t)
	defer cleanup()

	repo := NewExtensionRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE extension_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	resolved, err := repo.Resolve(context.Background(), "req-1", models.ExtensionStatusApproved, "user-2", nil, now)
	require.NoError(t, err)
	require.True(t, resolved)

	// Already resolved: the PENDING guard matches nothing.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE extension_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	resolved, err = repo.Resolve(context.Background(), "req-1", models.ExtensionStatusDenied, "user-3", nil, now)
	require.NoError(t, err)
	require.False(t, resolved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExtensionRepositoryListPendingForApprover(t *testing.T) {
	db, mock, cleanup := newExtensionRepoMock(t)
	defer cleanup()

	repo := NewExtensionRepository(db)
	rows := sqlmock.NewRows([]string{"id", "file_id", "requested_by_id", "approver_id", "reason", "additional_time", "status", "resolved_by_id", "resolved_at", "resolve_remarks", "created_at"}).
		AddRow("req-1", "file-1", "user-1", "user-2", "need more time", int64(86400), "PENDING", nil, nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM extension_requests")).
		WithArgs("user-2", string(models.ExtensionStatusPending)).
		WillReturnRows(rows)

	reqs, err := repo.ListPendingForApprover(context.Background(), "user-2")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, "req-1", reqs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
