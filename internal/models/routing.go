package models

import "time"

// RoutingAction enumerates transition kinds recorded in the audit trail.
type RoutingAction string

const (
	RoutingActionCreated          RoutingAction = "CREATED"
	RoutingActionForwarded        RoutingAction = "FORWARDED"
	RoutingActionApproved         RoutingAction = "APPROVED"
	RoutingActionRejected         RoutingAction = "REJECTED"
	RoutingActionReturnedToPrev   RoutingAction = "RETURNED_TO_PREVIOUS"
	RoutingActionReturnedToHost   RoutingAction = "RETURNED_TO_HOST"
	RoutingActionPutOnHold        RoutingAction = "PUT_ON_HOLD"
	RoutingActionReleased         RoutingAction = "RELEASED"
	RoutingActionRecalled         RoutingAction = "RECALLED"
	RoutingActionDispatched       RoutingAction = "DISPATCHED"
	RoutingActionExtensionGranted RoutingAction = "EXTENSION_GRANTED"
)

// RoutingEntry is the append-only audit record of a single file transition.
// Entries are never mutated or deleted.
type RoutingEntry struct {
	ID               string        `db:"id" json:"id"`
	FileID           string        `db:"file_id" json:"file_id"`
	Action           RoutingAction `db:"action" json:"action"`
	FromUserID       string        `db:"from_user_id" json:"from_user_id"`
	ToUserID         *string       `db:"to_user_id" json:"to_user_id,omitempty"`
	ToDivisionID     *string       `db:"to_division_id" json:"to_division_id,omitempty"`
	Remarks          *string       `db:"remarks" json:"remarks,omitempty"`
	TimeSpentSeconds *int64        `db:"time_spent_seconds" json:"time_spent_seconds,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
}
