package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/isdelr/task-manager-api/internal/database"
	"github.com/isdelr/task-manager-api/internal/models"
)

// EventRepository persists activity-feed entries.
type EventRepository struct {
	db *database.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create logs a new event to the database.
func (r *EventRepository) Create(ctx context.Context, event models.Event) (models.Event, error) {
	event.CreatedAt = now()
	var taskID sql.NullInt64
	if event.TaskID != nil {
		taskID = sql.NullInt64{Int64: *event.TaskID, Valid: true}
	}

	query := r.db.Rebind("INSERT INTO events (user_id, type, message, task_id, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id")
	err := r.db.QueryRowContext(ctx, query, event.UserID, event.Type, event.Message, taskID, event.CreatedAt).Scan(&event.ID)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to insert event: %w", err)
	}
	return event, nil
}

// ListRecent retrieves the user's most recent events, newest first.
func (r *EventRepository) ListRecent(ctx context.Context, userID int64, limit int) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind("SELECT id, user_id, type, message, task_id, created_at FROM events WHERE user_id = ? ORDER BY id DESC LIMIT ?"),
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var (
			event  models.Event
			taskID sql.NullInt64
		)
		if err := rows.Scan(&event.ID, &event.UserID, &event.Type, &event.Message, &taskID, &event.CreatedAt); err != nil {
			return nil, err
		}
		if taskID.Valid {
			event.TaskID = &taskID.Int64
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
