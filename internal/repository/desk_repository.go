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

// DeskRepository persists desks and answers capacity questions for the
// file-assignment path.
type DeskRepository struct {
	db *sqlx.DB
}

// NewDeskRepository constructs a new repository.
func NewDeskRepository(db *sqlx.DB) *DeskRepository {
	return &DeskRepository{db: db}
}

// Create inserts a desk.
func (r *DeskRepository) Create(ctx context.Context, desk *models.Desk) error {
	if desk.ID == "" {
		desk.ID = uuid.NewString()
	}
	if desk.CreatedAt.IsZero() {
		desk.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO desks (id, name, division_id, max_files_per_day, auto_created, active, created_at)
VALUES (:id, :name, :division_id, :max_files_per_day, :auto_created, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, desk); err != nil {
		return fmt.Errorf("create desk: %w", err)
	}
	return nil
}

// ListByDivision returns active desks with today's assignment counts.
func (r *DeskRepository) ListByDivision(ctx context.Context, divisionID string, day time.Time) ([]models.DeskLoad, error) {
	const query = `SELECT d.id, d.name, d.division_id, d.max_files_per_day, d.auto_created, d.active, d.created_at,
       COALESCE(f.cnt, 0) AS today_count
FROM desks d
LEFT JOIN (
    SELECT desk_id, COUNT(*) AS cnt FROM files
    WHERE created_at >= $2 AND created_at < $3 GROUP BY desk_id
) f ON f.desk_id = d.id
WHERE d.division_id = $1 AND d.active = true
ORDER BY today_count ASC, d.created_at ASC`
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)
	var desks []models.DeskLoad
	if err := r.db.SelectContext(ctx, &desks, query, divisionID, start, end); err != nil {
		return nil, fmt.Errorf("list desks: %w", err)
	}
	return desks, nil
}

// PickAvailable returns the least-loaded active desk in a division with
// remaining capacity for the day, or sql.ErrNoRows when all are full.
func (r *DeskRepository) PickAvailable(ctx context.Context, divisionID string, day time.Time) (*models.Desk, error) {
	loads, err := r.ListByDivision(ctx, divisionID, day)
	if err != nil {
		return nil, err
	}
	for i := range loads {
		if loads[i].TodayCount < loads[i].MaxFilesPerDay {
			desk := loads[i].Desk
			return &desk, nil
		}
	}
	return nil, sql.ErrNoRows
}

// CountOpenInDivision reports the division workload, consulted by the desk
// auto-creation threshold.
func (r *DeskRepository) CountOpenInDivision(ctx context.Context, divisionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM files
WHERE current_division_id = $1 AND is_closed = false`
	var count int
	if err := r.db.GetContext(ctx, &count, query, divisionID); err != nil {
		return 0, fmt.Errorf("count division files: %w", err)
	}
	return count, nil
}
