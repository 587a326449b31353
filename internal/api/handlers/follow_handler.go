package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/microblog-be/internal/flash"
	"github.com/isdelr/microblog-be/internal/services"
	"github.com/rs/zerolog/log"
)

// FollowHandler handles follow and unfollow actions.
type FollowHandler struct {
	service services.FollowServiceProvider
}

// NewFollowHandler creates a new FollowHandler.
func NewFollowHandler(service services.FollowServiceProvider) *FollowHandler {
	return &FollowHandler{service: service}
}

// Follow makes the viewer follow the user in the path.
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	_, err := h.service.Follow(r.Context(), viewerID(r), username)
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		flash.Add(w, r, fmt.Sprintf("User %s not found.", username))
		redirect(w, r, "/")
	case errors.Is(err, services.ErrSelfFollow):
		flash.Add(w, r, "You cannot follow yourself!")
		redirect(w, r, userPath(username))
	case err != nil:
		log.Error().Err(err).Str("user_id", viewerID(r)).Str("target", username).Msg("Failed to follow user")
		http.Error(w, "Failed to follow user", http.StatusInternalServerError)
	default:
		flash.Add(w, r, fmt.Sprintf("You are following %s!", username))
		redirect(w, r, userPath(username))
	}
}

// Unfollow removes the viewer's follow of the user in the path.
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	_, err := h.service.Unfollow(r.Context(), viewerID(r), username)
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		flash.Add(w, r, fmt.Sprintf("User %s not found.", username))
		redirect(w, r, "/")
	case errors.Is(err, services.ErrSelfUnfollow):
		flash.Add(w, r, "You cannot unfollow yourself!")
		redirect(w, r, userPath(username))
	case err != nil:
		log.Error().Err(err).Str("user_id", viewerID(r)).Str("target", username).Msg("Failed to unfollow user")
		http.Error(w, "Failed to unfollow user", http.StatusInternalServerError)
	default:
		flash.Add(w, r, fmt.Sprintf("You are not following %s.", username))
		redirect(w, r, userPath(username))
	}
}
