package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/filetrackhq/filetrack-api/internal/models"
)

// RoutingRepository reads the append-only routing trail.
type RoutingRepository struct {
	db *sqlx.DB
}

// NewRoutingRepository constructs a new repository.
func NewRoutingRepository(db *sqlx.DB) *RoutingRepository {
	return &RoutingRepository{db: db}
}

const routingColumns = `id, file_id, action, from_user_id, to_user_id, to_division_id, remarks, time_spent_seconds, created_at`

// Create appends a standalone routing entry outside a file transaction.
func (r *RoutingRepository) Create(ctx context.Context, entry *models.RoutingEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO routing_entries (id, file_id, action, from_user_id, to_user_id, to_division_id, remarks, time_spent_seconds, created_at)
VALUES (:id, :file_id, :action, :from_user_id, :to_user_id, :to_division_id, :remarks, :time_spent_seconds, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create routing entry: %w", err)
	}
	return nil
}

// ListByFile returns the full trail for a file, newest first.
func (r *RoutingRepository) ListByFile(ctx context.Context, fileID string) ([]models.RoutingEntry, error) {
	query := "SELECT " + routingColumns + " FROM routing_entries WHERE file_id = $1 ORDER BY created_at DESC"
	var entries []models.RoutingEntry
	if err := r.db.SelectContext(ctx, &entries, query, fileID); err != nil {
		return nil, fmt.Errorf("list routing entries: %w", err)
	}
	return entries, nil
}

// LatestAddressedTo returns the most recent entry that handed the file to the
// given user. Used to resolve the approver of an extension request.
func (r *RoutingRepository) LatestAddressedTo(ctx context.Context, fileID, toUserID string) (*models.RoutingEntry, error) {
	query := "SELECT " + routingColumns + ` FROM routing_entries
WHERE file_id = $1 AND to_user_id = $2 ORDER BY created_at DESC LIMIT 1`
	var entry models.RoutingEntry
	if err := r.db.GetContext(ctx, &entry, query, fileID, toUserID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("latest routing entry: %w", err)
	}
	return &entry, nil
}

// Latest returns the most recent entry for a file.
func (r *RoutingRepository) Latest(ctx context.Context, fileID string) (*models.RoutingEntry, error) {
	query := "SELECT " + routingColumns + " FROM routing_entries WHERE file_id = $1 ORDER BY created_at DESC LIMIT 1"
	var entry models.RoutingEntry
	if err := r.db.GetContext(ctx, &entry, query, fileID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("latest routing entry: %w", err)
	}
	return &entry, nil
}
