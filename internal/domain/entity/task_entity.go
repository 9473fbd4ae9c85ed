package entity

import (
	"time"
)

// TaskStatus enumerates the allowed task states.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// ValidStatus reports whether s is one of the known task states.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task belongs to exactly one user. UserID is set at creation and never
// reassigned.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      TaskStatus
	UserID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
