package websocket

import "github.com/isdelr/task-manager-api/internal/models"

const ActionTaskEvent = "task_event"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewTaskEventMessage wraps an activity event for delivery.
func NewTaskEventMessage(event models.Event) Message {
	return Message{Action: ActionTaskEvent, Payload: event}
}
