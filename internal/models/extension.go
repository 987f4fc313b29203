package models

import "time"

// ExtensionStatus enumerates lifecycle states of a time-extension request.
type ExtensionStatus string

const (
	ExtensionStatusPending  ExtensionStatus = "PENDING"
	ExtensionStatusApproved ExtensionStatus = "APPROVED"
	ExtensionStatusDenied   ExtensionStatus = "DENIED"
)

// ExtensionRequest asks for additional time on a held file. Once resolved the
// record is immutable.
type ExtensionRequest struct {
	ID             string          `db:"id" json:"id"`
	FileID         string          `db:"file_id" json:"file_id"`
	RequestedByID  string          `db:"requested_by_id" json:"requested_by_id"`
	ApproverID     string          `db:"approver_id" json:"approver_id"`
	Reason         string          `db:"reason" json:"reason"`
	AdditionalTime int64           `db:"additional_time" json:"additional_time"`
	Status         ExtensionStatus `db:"status" json:"status"`
	ResolvedByID   *string         `db:"resolved_by_id" json:"resolved_by_id,omitempty"`
	ResolvedAt     *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolveRemarks *string         `db:"resolve_remarks" json:"resolve_remarks,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}
