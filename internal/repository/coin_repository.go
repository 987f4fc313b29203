package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/filetrackhq/filetrack-api/internal/models"
)

// CoinRepository persists the coin economy: wallets, transactions, red flags
// and badges. All balance writes are relative increments.
type CoinRepository struct {
	db *sqlx.DB
}

// NewCoinRepository constructs a new repository.
func NewCoinRepository(db *sqlx.DB) *CoinRepository {
	return &CoinRepository{db: db}
}

// EnsureWallet creates the wallet row if missing.
func (r *CoinRepository) EnsureWallet(ctx context.Context, userID string) error {
	const query = `INSERT INTO coin_wallets (user_id, balance, total_earned, total_spent, red_flag_count, updated_at)
VALUES ($1, 0, 0, 0, 0, $2)
ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("ensure coin wallet: %w", err)
	}
	return nil
}

// ApplyDelta increments the wallet and appends the paired transaction in one
// database transaction. It returns the balance after the increment.
func (r *CoinRepository) ApplyDelta(ctx context.Context, txRecord *models.CoinTransaction) (int64, error) {
	if txRecord.ID == "" {
		txRecord.ID = uuid.NewString()
	}
	if txRecord.CreatedAt.IsZero() {
		txRecord.CreatedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin coin tx: %w", err)
	}
	const updateQuery = `UPDATE coin_wallets
SET balance = balance + $2,
    total_earned = total_earned + CASE WHEN $2 > 0 THEN $2 ELSE 0 END,
    total_spent = total_spent + CASE WHEN $2 < 0 THEN -$2 ELSE 0 END,
    updated_at = $3
WHERE user_id = $1
RETURNING balance`
	var after int64
	if err := tx.GetContext(ctx, &after, updateQuery, txRecord.UserID, txRecord.Amount, txRecord.CreatedAt); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("apply coin delta: %w", err)
	}
	const insertQuery = `INSERT INTO coin_transactions (id, user_id, amount, reason, file_id, created_at)
VALUES (:id, :user_id, :amount, :reason, :file_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, txRecord); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("append coin transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit coin tx: %w", err)
	}
	return after, nil
}

// GetWallet fetches a user's wallet.
func (r *CoinRepository) GetWallet(ctx context.Context, userID string) (*models.CoinWallet, error) {
	const query = `SELECT user_id, balance, total_earned, total_spent, red_flag_count, updated_at
FROM coin_wallets WHERE user_id = $1`
	var wallet models.CoinWallet
	if err := r.db.GetContext(ctx, &wallet, query, userID); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// SumTransactions returns the signed sum of all coin ledger entries.
func (r *CoinRepository) SumTransactions(ctx context.Context, userID string) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM coin_transactions WHERE user_id = $1`
	var sum int64
	if err := r.db.GetContext(ctx, &sum, query, userID); err != nil {
		return 0, fmt.Errorf("sum coin transactions: %w", err)
	}
	return sum, nil
}

// CountCompletionsInPeriod counts throughput rewards recorded for a user in
// the given YYYY-MM period.
func (r *CoinRepository) CountCompletionsInPeriod(ctx context.Context, userID, period string) (int, error) {
	const query = `SELECT COUNT(*) FROM coin_transactions
WHERE user_id = $1 AND reason IN ($2, $3) AND to_char(created_at, 'YYYY-MM') = $4`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, models.TxReasonOptimalHours, models.TxReasonExcessThroughput, period); err != nil {
		return 0, fmt.Errorf("count period completions: %w", err)
	}
	return count, nil
}

// CreateRedFlag records a strike and bumps the wallet's counter atomically,
// returning the count after the increment.
func (r *CoinRepository) CreateRedFlag(ctx context.Context, flag *models.RedFlag) (int, error) {
	if flag.ID == "" {
		flag.ID = uuid.NewString()
	}
	if flag.CreatedAt.IsZero() {
		flag.CreatedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin red flag tx: %w", err)
	}
	const insertQuery = `INSERT INTO red_flags (id, user_id, file_id, severity, reason, created_at)
VALUES (:id, :user_id, :file_id, :severity, :reason, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, flag); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("create red flag: %w", err)
	}
	const updateQuery = `UPDATE coin_wallets SET red_flag_count = red_flag_count + 1, updated_at = $2
WHERE user_id = $1
RETURNING red_flag_count`
	var count int
	if err := tx.GetContext(ctx, &count, updateQuery, flag.UserID, flag.CreatedAt); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("bump red flag count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit red flag tx: %w", err)
	}
	return count, nil
}

// AwardBadge records a badge for a user and period; duplicates are ignored.
func (r *CoinRepository) AwardBadge(ctx context.Context, badge *models.UserBadge) error {
	if badge.ID == "" {
		badge.ID = uuid.NewString()
	}
	if badge.CreatedAt.IsZero() {
		badge.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO user_badges (id, user_id, badge, period, created_at)
VALUES (:id, :user_id, :badge, :period, :created_at)
ON CONFLICT (user_id, badge, period) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, badge); err != nil {
		return fmt.Errorf("award badge: %w", err)
	}
	return nil
}

// ListTransactions returns a user's coin ledger entries, newest first.
func (r *CoinRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]models.CoinTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT id, user_id, amount, reason, file_id, created_at
FROM coin_transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT %d`, limit)
	var txs []models.CoinTransaction
	if err := r.db.SelectContext(ctx, &txs, query, userID); err != nil {
		return nil, fmt.Errorf("list coin transactions: %w", err)
	}
	return txs, nil
}
