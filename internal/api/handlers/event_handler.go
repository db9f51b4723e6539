package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/task-manager-api/internal/services"
	"github.com/rs/zerolog/log"
)

// EventHandler handles HTTP requests related to the caller's activity feed.
type EventHandler struct {
	service services.EventServiceProvider
	rs      *Responder
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider, rs *Responder) *EventHandler {
	return &EventHandler{service: service, rs: rs}
}

// GetRecent handles the request to get the caller's recent activity.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = services.DefaultEventLimit
	}

	events, err := h.service.GetRecentEvents(r.Context(), user.ID, limit)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to retrieve events")
		h.rs.Internal(w, err, "Failed to retrieve activity")
		return
	}
	h.rs.OK(w, http.StatusOK, "Activity retrieved successfully", events)
}
