package services

import (
	"context"

	"github.com/isdelr/task-manager-api/internal/models"
	"github.com/isdelr/task-manager-api/internal/repository"
	"github.com/rs/zerolog/log"
)

const (
	DefaultEventLimit = 20
	MaxEventLimit     = 100
)

// EventRecorder records activity for a user. Recording never fails the caller.
type EventRecorder interface {
	Record(ctx context.Context, userID int64, eventType, message string, taskID *int64)
}

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	EventRecorder
	GetRecentEvents(ctx context.Context, userID int64, limit int) ([]models.Event, error)
}

// Publisher pushes a recorded event to the owner's live connections.
type Publisher interface {
	Publish(userID int64, event models.Event)
}

// EventService provides business logic for the activity feed.
type EventService struct {
	events    *repository.EventRepository
	publisher Publisher
}

// NewEventService creates a new EventService. publisher may be nil.
func NewEventService(events *repository.EventRepository, publisher Publisher) *EventService {
	return &EventService{events: events, publisher: publisher}
}

// Record stores a new event and forwards it to the publisher.
func (s *EventService) Record(ctx context.Context, userID int64, eventType, message string, taskID *int64) {
	event, err := s.events.Create(ctx, models.Event{
		UserID:  userID,
		Type:    eventType,
		Message: message,
		TaskID:  taskID,
	})
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Str("type", eventType).Msg("Failed to record event")
		return
	}
	if s.publisher != nil {
		s.publisher.Publish(userID, event)
	}
}

// GetRecentEvents retrieves the user's most recent events. limit is clamped to [1, MaxEventLimit].
func (s *EventService) GetRecentEvents(ctx context.Context, userID int64, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	if limit > MaxEventLimit {
		limit = MaxEventLimit
	}
	return s.events.ListRecent(ctx, userID, limit)
}
