package dto

import (
	"time"

	"github.com/filetrackhq/filetrack-api/internal/models"
)

// CreateFileRequest payload for registering a new case file.
type CreateFileRequest struct {
	Subject          string              `json:"subject" validate:"required"`
	Description      string              `json:"description"`
	Priority         models.FilePriority `json:"priority"`
	PriorityCategory string              `json:"priorityCategory"`
	DivisionID       string              `json:"divisionId" validate:"required"`
	DepartmentID     string              `json:"departmentId" validate:"required"`
	AllottedDays     int                 `json:"allottedDays" validate:"gte=0"`
	DueDate          *time.Time          `json:"dueDate"`
}

// ForwardFileRequest moves a file to another division/holder.
type ForwardFileRequest struct {
	ToDivisionID string `json:"toDivisionId" validate:"required"`
	ToUserID     string `json:"toUserId" validate:"required"`
	Remarks      string `json:"remarks"`
}

// FileActionRequest applies a named transition to a file.
type FileActionRequest struct {
	Action  string `json:"action" validate:"required"`
	Remarks string `json:"remarks"`
}

// DispatchFileRequest closes a file out of the office.
type DispatchFileRequest struct {
	Method       string   `json:"method" validate:"required"`
	TrackingInfo string   `json:"trackingInfo"`
	ProofDocs    []string `json:"proofDocs"`
}

// FileQuery mirrors supported listing filters.
type FileQuery struct {
	Statuses     []models.FileStatus
	DivisionID   string
	DepartmentID string
	AssignedToID string
	RedListed    *bool
	Page         int
	PageSize     int
}
