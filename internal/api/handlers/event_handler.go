package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/microblog-be/internal/services"
	"github.com/rs/zerolog/log"
)

const maxActivityLimit = 100

// EventHandler serves the viewer's activity log.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get the viewer's recent activity.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 20 // Default limit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	events, err := h.service.RecentForUser(r.Context(), viewerID(r), limit)
	if err != nil {
		log.Error().Err(err).Str("user_id", viewerID(r)).Msg("Failed to retrieve events")
		http.Error(w, "Failed to retrieve events", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, events)
}
