package handlers

import (
	"net/http"

	"github.com/isdelr/microblog-be/internal/feed"
	"github.com/isdelr/microblog-be/internal/flash"
	"github.com/isdelr/microblog-be/internal/services"
	"github.com/rs/zerolog/log"
)

// FeedHandler serves the home and explore feeds and accepts new posts.
type FeedHandler struct {
	posts    services.PostServiceProvider
	composer *feed.Composer
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(posts services.PostServiceProvider, composer *feed.Composer) *FeedHandler {
	return &FeedHandler{posts: posts, composer: composer}
}

// Index shows the viewer's home feed and an empty post form.
func (h *FeedHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderHome(w, r, http.StatusOK, pageParam(r), PostForm{}, nil)
}

// Submit publishes a new post for the viewer.
func (h *FeedHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var form PostForm
	if err := bind(r, &form); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if errs := validateForm(&form); errs != nil {
		h.renderHome(w, r, http.StatusUnprocessableEntity, 1, form, errs)
		return
	}

	if _, err := h.posts.CreatePost(r.Context(), viewerID(r), form.Post); err != nil {
		log.Error().Err(err).Str("user_id", viewerID(r)).Msg("Failed to create post")
		http.Error(w, "Failed to create post", http.StatusInternalServerError)
		return
	}

	flash.Add(w, r, "Your post is now live!")
	redirect(w, r, "/")
}

func (h *FeedHandler) renderHome(w http.ResponseWriter, r *http.Request, status, pageNum int, form PostForm, errs map[string]string) {
	page, err := h.composer.Home(r.Context(), viewerID(r), pageNum)
	if err != nil {
		log.Error().Err(err).Str("user_id", viewerID(r)).Msg("Failed to load home feed")
		http.Error(w, "Failed to load feed", http.StatusInternalServerError)
		return
	}

	next, prev := pageLinks("/", page)
	writeJSON(w, status, feedView{
		Title:   "Home",
		Flashes: flash.Pop(w, r),
		Form:    form,
		Errors:  errs,
		Page:    page,
		NextURL: next,
		PrevURL: prev,
	})
}

// Explore shows every post, newest first.
func (h *FeedHandler) Explore(w http.ResponseWriter, r *http.Request) {
	page, err := h.composer.Explore(r.Context(), pageParam(r))
	if err != nil {
		log.Error().Err(err).Msg("Failed to load explore feed")
		http.Error(w, "Failed to load feed", http.StatusInternalServerError)
		return
	}

	next, prev := pageLinks("/explore", page)
	writeJSON(w, http.StatusOK, feedView{
		Title:   "Explore",
		Flashes: flash.Pop(w, r),
		Page:    page,
		NextURL: next,
		PrevURL: prev,
	})
}
