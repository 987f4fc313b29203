package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/filetrackhq/filetrack-api/internal/models"
)

// FileRepository manages persistence for case files and their routing trail.
type FileRepository struct {
	db *sqlx.DB
}

// NewFileRepository constructs a new repository.
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

const fileColumns = `id, file_number, subject, description, status, priority, priority_category, created_by_id, assigned_to_id,
       current_division_id, department_id, desk_id, due_date, desk_due_date, allotted_time, time_remaining,
       timer_percentage, is_red_listed, red_listed_at, is_on_hold, hold_reason, is_closed, closed_at, created_at, updated_at`

const insertRoutingEntrySQL = `INSERT INTO routing_entries (id, file_id, action, from_user_id, to_user_id, to_division_id, remarks, time_spent_seconds, created_at)
VALUES (:id, :file_id, :action, :from_user_id, :to_user_id, :to_division_id, :remarks, :time_spent_seconds, :created_at)`

const updateFileSQL = `UPDATE files SET status = :status, assigned_to_id = :assigned_to_id, current_division_id = :current_division_id,
       desk_id = :desk_id, due_date = :due_date, desk_due_date = :desk_due_date, allotted_time = :allotted_time,
       time_remaining = :time_remaining, timer_percentage = :timer_percentage, is_red_listed = :is_red_listed,
       red_listed_at = :red_listed_at, is_on_hold = :is_on_hold, hold_reason = :hold_reason, is_closed = :is_closed,
       closed_at = :closed_at, updated_at = :updated_at
WHERE id = :id`

// CreateWithEntry inserts a file and its CREATED routing entry in one transaction.
func (r *FileRepository) CreateWithEntry(ctx context.Context, file *models.File, entry *models.RoutingEntry) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	file.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create file tx: %w", err)
	}
	const query = `INSERT INTO files (id, file_number, subject, description, status, priority, priority_category,
        created_by_id, assigned_to_id, current_division_id, department_id, desk_id, due_date, desk_due_date,
        allotted_time, time_remaining, timer_percentage, is_red_listed, red_listed_at, is_on_hold, hold_reason,
        is_closed, closed_at, created_at, updated_at)
VALUES (:id, :file_number, :subject, :description, :status, :priority, :priority_category,
        :created_by_id, :assigned_to_id, :current_division_id, :department_id, :desk_id, :due_date, :desk_due_date,
        :allotted_time, :time_remaining, :timer_percentage, :is_red_listed, :red_listed_at, :is_on_hold, :hold_reason,
        :is_closed, :closed_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, file); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create file: %w", err)
	}
	prepareEntry(entry, file.ID)
	if _, err := tx.NamedExecContext(ctx, insertRoutingEntrySQL, entry); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create routing entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create file tx: %w", err)
	}
	return nil
}

// GetByID fetches a single file.
func (r *FileRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	const query = "SELECT " + fileColumns + " FROM files WHERE id = $1"
	var file models.File
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		return nil, err
	}
	return &file, nil
}

// List returns files per provided filter with a total count.
func (r *FileRepository) List(ctx context.Context, filter models.FileFilter) ([]models.File, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if len(filter.Statuses) > 0 {
		values := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			values[i] = string(s)
		}
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(values))
	}
	if filter.DivisionID != "" {
		where = append(where, fmt.Sprintf("current_division_id = $%d", len(args)+1))
		args = append(args, filter.DivisionID)
	}
	if filter.DepartmentID != "" {
		where = append(where, fmt.Sprintf("department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.AssignedToID != "" {
		where = append(where, fmt.Sprintf("assigned_to_id = $%d", len(args)+1))
		args = append(args, filter.AssignedToID)
	}
	if filter.RedListed != nil {
		where = append(where, fmt.Sprintf("is_red_listed = $%d", len(args)+1))
		args = append(args, *filter.RedListed)
	}
	if filter.OnHold != nil {
		where = append(where, fmt.Sprintf("is_on_hold = $%d", len(args)+1))
		args = append(args, *filter.OnHold)
	}
	if filter.Closed != nil {
		where = append(where, fmt.Sprintf("is_closed = $%d", len(args)+1))
		args = append(args, *filter.Closed)
	}
	whereClause := strings.Join(where, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size
	query := fmt.Sprintf("SELECT %s FROM files WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d", fileColumns, whereClause, size, offset)
	var files []models.File
	if err := r.db.SelectContext(ctx, &files, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list files: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM files WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count files: %w", err)
	}
	return files, total, nil
}

// Transition persists a file mutation together with its routing entry. Both
// writes commit or neither does.
func (r *FileRepository) Transition(ctx context.Context, file *models.File, entry *models.RoutingEntry) error {
	file.UpdatedAt = time.Now().UTC()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition tx: %w", err)
	}
	res, err := tx.NamedExecContext(ctx, updateFileSQL, file)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update file: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		_ = tx.Rollback()
		return sql.ErrNoRows
	}
	prepareEntry(entry, file.ID)
	if _, err := tx.NamedExecContext(ctx, insertRoutingEntrySQL, entry); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("append routing entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition tx: %w", err)
	}
	return nil
}

// UpdateTiming persists recomputed timer fields only.
func (r *FileRepository) UpdateTiming(ctx context.Context, id string, remaining *int64, percentage float64) error {
	const query = `UPDATE files SET time_remaining = $2, timer_percentage = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, remaining, percentage, time.Now().UTC()); err != nil {
		return fmt.Errorf("update file timing: %w", err)
	}
	return nil
}

// ApplyExtension shifts the due dates and allotted time by delta seconds as a
// single relative update.
func (r *FileRepository) ApplyExtension(ctx context.Context, id string, deltaSeconds int64) error {
	const query = `UPDATE files SET due_date = due_date + make_interval(secs => $2),
       desk_due_date = CASE WHEN desk_due_date IS NULL THEN NULL ELSE desk_due_date + make_interval(secs => $2) END,
       allotted_time = allotted_time + $2, updated_at = $3
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, deltaSeconds, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("apply extension: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkRedListed flips the red-list flag. The false→true condition makes the
// write the gate: only one caller observes a true return for a given file.
func (r *FileRepository) MarkRedListed(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE files SET is_red_listed = true, red_listed_at = $2, timer_percentage = 0, updated_at = $2
WHERE id = $1 AND is_red_listed = false`
	res, err := r.db.ExecContext(ctx, query, id, at.UTC())
	if err != nil {
		return false, fmt.Errorf("mark red-listed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark red-listed rows: %w", err)
	}
	return affected == 1, nil
}

// ListSweepCandidates returns open, unheld, not-yet-red-listed files whose
// time budget looks exhausted by any of the three signals.
func (r *FileRepository) ListSweepCandidates(ctx context.Context, now time.Time) ([]models.File, error) {
	query := "SELECT " + fileColumns + ` FROM files
WHERE status = ANY($1) AND is_on_hold = false AND is_red_listed = false AND is_closed = false
  AND (time_remaining <= 0 OR due_date <= $2 OR desk_due_date <= $2)
ORDER BY due_date ASC NULLS LAST`
	statuses := pq.Array([]string{string(models.FileStatusPending), string(models.FileStatusInProgress)})
	var files []models.File
	if err := r.db.SelectContext(ctx, &files, query, statuses, now.UTC()); err != nil {
		return nil, fmt.Errorf("list sweep candidates: %w", err)
	}
	return files, nil
}

// ListOpenTimed returns open, non-held files carrying a due date, for the
// periodic timer refresh.
func (r *FileRepository) ListOpenTimed(ctx context.Context) ([]models.File, error) {
	query := "SELECT " + fileColumns + ` FROM files
WHERE status = ANY($1) AND is_on_hold = false AND is_closed = false AND due_date IS NOT NULL
ORDER BY due_date ASC`
	statuses := pq.Array([]string{string(models.FileStatusPending), string(models.FileStatusInProgress)})
	var files []models.File
	if err := r.db.SelectContext(ctx, &files, query, statuses); err != nil {
		return nil, fmt.Errorf("list open timed files: %w", err)
	}
	return files, nil
}

// NextSequence reserves the next file number sequence for a department,
// division and year.
func (r *FileRepository) NextSequence(ctx context.Context, departmentID, divisionID string, year int) (int, error) {
	const query = `INSERT INTO file_sequences (department_id, division_id, year, seq)
VALUES ($1, $2, $3, 1)
ON CONFLICT (department_id, division_id, year)
DO UPDATE SET seq = file_sequences.seq + 1
RETURNING seq`
	var seq int
	if err := r.db.GetContext(ctx, &seq, query, departmentID, divisionID, year); err != nil {
		return 0, fmt.Errorf("next file sequence: %w", err)
	}
	return seq, nil
}

// CreateDispatchProof stores the immutable dispatch record.
func (r *FileRepository) CreateDispatchProof(ctx context.Context, proof *models.DispatchProof) error {
	if proof.ID == "" {
		proof.ID = uuid.NewString()
	}
	if proof.CreatedAt.IsZero() {
		proof.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO dispatch_proofs (id, file_id, dispatched_by, method, tracking_info, proof_docs, created_at)
VALUES (:id, :file_id, :dispatched_by, :method, :tracking_info, :proof_docs, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, proof); err != nil {
		return fmt.Errorf("create dispatch proof: %w", err)
	}
	return nil
}

func prepareEntry(entry *models.RoutingEntry, fileID string) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.FileID == "" {
		entry.FileID = fileID
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
}
