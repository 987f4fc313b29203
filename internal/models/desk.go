package models

import "time"

// Desk is a capacity-bounded work queue within a division.
type Desk struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	DivisionID     string    `db:"division_id" json:"division_id"`
	MaxFilesPerDay int       `db:"max_files_per_day" json:"max_files_per_day"`
	AutoCreated    bool      `db:"auto_created" json:"auto_created"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// DeskLoad pairs a desk with its file count for the current day.
type DeskLoad struct {
	Desk
	TodayCount int `db:"today_count" json:"today_count"`
}
