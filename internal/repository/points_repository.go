package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/filetrackhq/filetrack-api/internal/models"
)

// PointsRepository persists the legacy points ledger. Balance changes are
// expressed as relative increments at the storage layer so concurrent writers
// never lose updates.
type PointsRepository struct {
	db *sqlx.DB
}

// NewPointsRepository constructs a new repository.
func NewPointsRepository(db *sqlx.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

// EnsureAccount creates the balance row if it does not exist yet.
func (r *PointsRepository) EnsureAccount(ctx context.Context, userID string, basePoints int64) error {
	const query = `INSERT INTO user_points (user_id, base_points, current_points, total_deductions, total_bonuses, monthly_streak, updated_at)
VALUES ($1, $2, $2, 0, 0, 0, $3)
ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, basePoints, time.Now().UTC()); err != nil {
		return fmt.Errorf("ensure points account: %w", err)
	}
	return nil
}

// ApplyDelta increments the balance and appends the paired transaction in one
// database transaction. It returns the balance after the increment.
func (r *PointsRepository) ApplyDelta(ctx context.Context, txRecord *models.PointsTransaction) (int64, error) {
	if txRecord.ID == "" {
		txRecord.ID = uuid.NewString()
	}
	if txRecord.CreatedAt.IsZero() {
		txRecord.CreatedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin points tx: %w", err)
	}
	const updateQuery = `UPDATE user_points
SET current_points = current_points + $2,
    total_deductions = total_deductions + CASE WHEN $2 < 0 THEN -$2 ELSE 0 END,
    total_bonuses = total_bonuses + CASE WHEN $2 > 0 THEN $2 ELSE 0 END,
    updated_at = $3
WHERE user_id = $1
RETURNING current_points`
	var after int64
	if err := tx.GetContext(ctx, &after, updateQuery, txRecord.UserID, txRecord.Amount, txRecord.CreatedAt); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("apply points delta: %w", err)
	}
	const insertQuery = `INSERT INTO points_transactions (id, user_id, amount, reason, file_id, period, created_at)
VALUES (:id, :user_id, :amount, :reason, :file_id, :period, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, txRecord); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("append points transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit points tx: %w", err)
	}
	return after, nil
}

// Get fetches a user's balance row.
func (r *PointsRepository) Get(ctx context.Context, userID string) (*models.UserPoints, error) {
	const query = `SELECT user_id, base_points, current_points, total_deductions, total_bonuses, monthly_streak, updated_at
FROM user_points WHERE user_id = $1`
	var points models.UserPoints
	if err := r.db.GetContext(ctx, &points, query, userID); err != nil {
		return nil, err
	}
	return &points, nil
}

// SumTransactions returns the signed sum of all ledger entries for a user.
// Base points plus this sum must equal the stored balance.
func (r *PointsRepository) SumTransactions(ctx context.Context, userID string) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM points_transactions WHERE user_id = $1`
	var sum int64
	if err := r.db.GetContext(ctx, &sum, query, userID); err != nil {
		return 0, fmt.Errorf("sum points transactions: %w", err)
	}
	return sum, nil
}

// ListTransactions returns a user's ledger entries, newest first.
func (r *PointsRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]models.PointsTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT id, user_id, amount, reason, file_id, period, created_at
FROM points_transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT %d`, limit)
	var txs []models.PointsTransaction
	if err := r.db.SelectContext(ctx, &txs, query, userID); err != nil {
		return nil, fmt.Errorf("list points transactions: %w", err)
	}
	return txs, nil
}

// CountPenaltiesInPeriod counts red-list deductions recorded for a user in
// the given YYYY-MM period.
func (r *PointsRepository) CountPenaltiesInPeriod(ctx context.Context, userID, period string) (int, error) {
	const query = `SELECT COUNT(*) FROM points_transactions
WHERE user_id = $1 AND reason = $2 AND to_char(created_at, 'YYYY-MM') = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, models.TxReasonRedListPenalty, period); err != nil {
		return 0, fmt.Errorf("count period penalties: %w", err)
	}
	return count, nil
}

// HasBonusForPeriod reports whether the monthly bonus was already granted.
func (r *PointsRepository) HasBonusForPeriod(ctx context.Context, userID, period string) (bool, error) {
	const query = `SELECT COUNT(*) FROM points_transactions
WHERE user_id = $1 AND reason = $2 AND period = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, models.TxReasonMonthlyBonus, period); err != nil {
		return false, fmt.Errorf("check period bonus: %w", err)
	}
	return count > 0, nil
}

// SetStreak updates the monthly streak counter.
func (r *PointsRepository) SetStreak(ctx context.Context, userID string, streak int) error {
	const query = `UPDATE user_points SET monthly_streak = $2, updated_at = $3 WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, streak, time.Now().UTC()); err != nil {
		return fmt.Errorf("set streak: %w", err)
	}
	return nil
}

// ListAccountIDs returns every user holding a points account.
func (r *PointsRepository) ListAccountIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT user_id FROM user_points ORDER BY user_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list points accounts: %w", err)
	}
	return ids, nil
}

// Leaderboard returns the top balances joined with user names.
func (r *PointsRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT p.user_id, u.full_name, p.current_points, p.monthly_streak
FROM user_points p JOIN users u ON u.id = p.user_id
ORDER BY p.current_points DESC LIMIT %d`, limit)
	var rows []models.LeaderboardRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("points leaderboard: %w", err)
	}
	return rows, nil
}
