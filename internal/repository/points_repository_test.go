package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/filetrackhq/filetrack-api/internal/models"
)

func newPointsRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPointsRepositoryApplyDeltaPairsBalanceAndTransaction(t *testing.T) {
	db, mock, cleanup := newPointsRepoMock(t)
	defer cleanup()

	repo := NewPointsRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE user_points")).
		WillReturnRows(sqlmock.NewRows([]string{"current_points"}).AddRow(int64(950)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO points_transactions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	fileID := "file-1"
	after, err := repo.ApplyDelta(context.Background(), &models.PointsTransaction{
		UserID: "user-1",
		Amount: -50,
		Reason: models.TxReasonRedListPenalty,
		FileID: &fileID,
	})
	require.NoError(t, err)
	require.Equal(t, int64(950), after)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPointsRepositoryApplyDeltaRollsBackWithoutTransactionRow(t *testing.T) {
	db, mock, cleanup := newPointsRepoMock(t)
	defer cleanup()

	repo := NewPointsRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE user_points")).
		WillReturnRows(sqlmock.NewRows([]string{"current_points"}).AddRow(int64(1100)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO points_transactions")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	_, err := repo.ApplyDelta(context.Background(), &models.PointsTransaction{
		UserID: "user-1",
		Amount: 100,
		Reason: models.TxReasonMonthlyBonus,
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPointsRepositorySumTransactions(t *testing.T) {
	db, mock, cleanup := newPointsRepoMock(t)
	defer cleanup()

	repo := NewPointsRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) FROM points_transactions")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(-150)))

	sum, err := repo.SumTransactions(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(-150), sum)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPointsRepositoryEnsureAccountIdempotent(t *testing.T) {
	db, mock, cleanup := newPointsRepoMock(t)
	defer cleanup()

	repo := NewPointsRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_points")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_points")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureAccount(context.Background(), "user-1", 1000))
	require.NoError(t, repo.EnsureAccount(context.Background(), "user-1", 1000))
	require.NoError(t, mock.ExpectationsWereMet())
}
