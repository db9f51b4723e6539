package models

import "time"

// Event types recorded in a user's activity feed.
const (
	EventTaskCreated    = "task.create"
	EventTaskUpdated    = "task.update"
	EventTaskStatus     = "task.status"
	EventTaskBulkStatus = "task.bulk_status"
	EventTaskDeleted    = "task.delete"
)

// Event represents an entry in a user's activity feed.
type Event struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Type      string    `json:"type"` // e.g., "task.create", "task.delete"
	Message   string    `json:"message"`
	TaskID    *int64    `json:"task_id,omitempty"` // Nullable for multi-task events
	CreatedAt time.Time `json:"created_at"`
}
