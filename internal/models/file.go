package models

import (
	"time"

	"github.com/lib/pq"
)

// FileStatus enumerates lifecycle states of a case file.
type FileStatus string

const (
	FileStatusPending    FileStatus = "PENDING"
	FileStatusInProgress FileStatus = "IN_PROGRESS"
	FileStatusOnHold     FileStatus = "ON_HOLD"
	FileStatusApproved   FileStatus = "APPROVED"
	FileStatusRejected   FileStatus = "REJECTED"
	FileStatusReturned   FileStatus = "RETURNED"
	FileStatusRecalled   FileStatus = "RECALLED"
)

// FilePriority buckets files by urgency.
type FilePriority string

const (
	FilePriorityLow    FilePriority = "LOW"
	FilePriorityNormal FilePriority = "NORMAL"
	FilePriorityHigh   FilePriority = "HIGH"
	FilePriorityUrgent FilePriority = "URGENT"
)

// File is a case record moving through the approval chain.
type File struct {
	ID                string       `db:"id" json:"id"`
	FileNumber        string       `db:"file_number" json:"file_number"`
	Subject           string       `db:"subject" json:"subject"`
	Description       string       `db:"description" json:"description"`
	Status            FileStatus   `db:"status" json:"status"`
	Priority          FilePriority `db:"priority" json:"priority"`
	PriorityCategory  string       `db:"priority_category" json:"priority_category"`
	CreatedByID       string       `db:"created_by_id" json:"created_by_id"`
	AssignedToID      *string      `db:"assigned_to_id" json:"assigned_to_id,omitempty"`
	CurrentDivisionID string       `db:"current_division_id" json:"current_division_id"`
	DepartmentID      string       `db:"department_id" json:"department_id"`
	DeskID            *string      `db:"desk_id" json:"desk_id,omitempty"`
	DueDate           *time.Time   `db:"due_date" json:"due_date,omitempty"`
	DeskDueDate       *time.Time   `db:"desk_due_date" json:"desk_due_date,omitempty"`
	AllottedTime      int64        `db:"allotted_time" json:"allotted_time"`
	TimeRemaining     *int64       `db:"time_remaining" json:"time_remaining,omitempty"`
	TimerPercentage   float64      `db:"timer_percentage" json:"timer_percentage"`
	IsRedListed       bool         `db:"is_red_listed" json:"is_red_listed"`
	RedListedAt       *time.Time   `db:"red_listed_at" json:"red_listed_at,omitempty"`
	IsOnHold          bool         `db:"is_on_hold" json:"is_on_hold"`
	HoldReason        *string      `db:"hold_reason" json:"hold_reason,omitempty"`
	IsClosed          bool         `db:"is_closed" json:"is_closed"`
	ClosedAt          *time.Time   `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
}

// IsOpen reports whether the file still sits in the active approval flow.
func (f *File) IsOpen() bool {
	return !f.IsClosed && (f.Status == FileStatusPending || f.Status == FileStatusInProgress)
}

// FileFilter narrows down file listings.
type FileFilter struct {
	Statuses     []FileStatus
	DivisionID   string
	DepartmentID string
	AssignedToID string
	RedListed    *bool
	OnHold       *bool
	Closed       *bool
	Page         int
	PageSize     int
}

// DispatchProof is the immutable record created when a file leaves the office.
type DispatchProof struct {
	ID           string         `db:"id" json:"id"`
	FileID       string         `db:"file_id" json:"file_id"`
	DispatchedBy string         `db:"dispatched_by" json:"dispatched_by"`
	Method       string         `db:"method" json:"method"`
	TrackingInfo *string        `db:"tracking_info" json:"tracking_info,omitempty"`
	ProofDocs    pq.StringArray `db:"proof_docs" json:"proof_docs,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
