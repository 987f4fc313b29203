package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/filetrackhq/filetrack-api/internal/models"
)

// ExtensionRepository persists time-extension requests.
type ExtensionRepository struct {
	db *sqlx.DB
}

// NewExtensionRepository constructs a new repository.
func NewExtensionRepository(db *sqlx.DB) *ExtensionRepository {
	return &ExtensionRepository{db: db}
}

const extensionColumns = `id, file_id, requested_by_id, approver_id, reason, additional_time, status, resolved_by_id, resolved_at, resolve_remarks, created_at`

// Create inserts a pending request.
func (r *ExtensionRepository) Create(ctx context.Context, req *models.ExtensionRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = models.ExtensionStatusPending
	}
	const query = `INSERT INTO extension_requests (id, file_id, requested_by_id, approver_id, reason, additional_time, status, created_at)
VALUES (:id, :file_id, :requested_by_id, :approver_id, :reason, :additional_time, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create extension request: %w", err)
	}
	return nil
}

// GetByID fetches a single request.
func (r *ExtensionRepository) GetByID(ctx context.Context, id string) (*models.ExtensionRequest, error) {
	query := "SELECT " + extensionColumns + " FROM extension_requests WHERE id = $1"
	var req models.ExtensionRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListPendingForApprover returns unresolved requests awaiting the given user.
func (r *ExtensionRepository) ListPendingForApprover(ctx context.Context, approverID string) ([]models.ExtensionRequest, error) {
	query := "SELECT " + extensionColumns + ` FROM extension_requests
WHERE approver_id = $1 AND status = $2 ORDER BY created_at ASC`
	var reqs []models.ExtensionRequest
	if err := r.db.SelectContext(ctx, &reqs, query, approverID, models.ExtensionStatusPending); err != nil {
		return nil, fmt.Errorf("list pending extension requests: %w", err)
	}
	return reqs, nil
}

// ListByFile returns all requests ever raised for a file.
func (r *ExtensionRepository) ListByFile(ctx context.Context, fileID string) ([]models.ExtensionRequest, error) {
	query := "SELECT " + extensionColumns + " FROM extension_requests WHERE file_id = $1 ORDER BY created_at DESC"
	var reqs []models.ExtensionRequest
	if err := r.db.SelectContext(ctx, &reqs, query, fileID); err != nil {
		return nil, fmt.Errorf("list extension requests: %w", err)
	}
	return reqs, nil
}

// Resolve moves a pending request to its terminal status. The status guard in
// the WHERE clause makes resolution one-shot: a second attempt matches zero
// rows and reports false.
func (r *ExtensionRepository) Resolve(ctx context.Context, id string, status models.ExtensionStatus, resolvedBy string, remarks *string, at time.Time) (bool, error) {
	const query = `UPDATE extension_requests
SET status = $2, resolved_by_id = $3, resolve_remarks = $4, resolved_at = $5
WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, status, resolvedBy, remarks, at.UTC(), models.ExtensionStatusPending)
	if err != nil {
		return false, fmt.Errorf("resolve extension request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve extension rows: %w", err)
	}
	return affected == 1, nil
}
