package models

import "time"

// NotificationType enumerates event kinds published to the delivery channel.
type NotificationType string

const (
	NotifyFileReceived      NotificationType = "file_received"
	NotifyFileRedListed     NotificationType = "file_redlisted"
	NotifyFileDispatched    NotificationType = "file_dispatched"
	NotifyExtensionRequest  NotificationType = "extension_request"
	NotifyExtensionApproved NotificationType = "extension_approved"
	NotifyExtensionDenied   NotificationType = "extension_denied"
	NotifyAdminRedList      NotificationType = "admin_file_redlisted"
	NotifyAdminExtension    NotificationType = "admin_extension_request"
	NotifyAdminDispatch     NotificationType = "admin_file_dispatched"
	NotifyLowCoins          NotificationType = "low_coins"
	NotifyLowPoints         NotificationType = "low_points"
	NotifyRedFlagThreshold  NotificationType = "red_flag_threshold"
)

// NotificationPriority flags delivery urgency.
type NotificationPriority string

const (
	NotificationNormal NotificationPriority = "NORMAL"
	NotificationUrgent NotificationPriority = "URGENT"
)

// NotificationEvent is the fire-and-forget payload handed to the delivery
// channel. Delivery failures never roll back the state transition that
// produced the event.
type NotificationEvent struct {
	UserID    string               `json:"user_id"`
	Type      NotificationType     `json:"type"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	FileID    *string              `json:"file_id,omitempty"`
	Priority  NotificationPriority `json:"priority,omitempty"`
	Actions   []string             `json:"actions,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}
