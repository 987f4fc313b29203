package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/filetrackhq/filetrack-api/internal/models"
)

// UserRepository reads the participants of the approval chain.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a new repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, full_name, role, division_id, department_id, active, created_at, updated_at`

// GetByID fetches a single user.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1"
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListAdminsByDepartment returns active admin users for notification fan-out.
func (r *UserRepository) ListAdminsByDepartment(ctx context.Context, departmentID string) ([]models.User, error) {
	query := "SELECT " + userColumns + ` FROM users
WHERE active = true AND (role = $1 OR (role = $2 AND department_id = $3))
ORDER BY full_name ASC`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, models.RoleSuperAdmin, models.RoleAdmin, departmentID); err != nil {
		return nil, fmt.Errorf("list department admins: %w", err)
	}
	return users, nil
}
