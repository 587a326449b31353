package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/isdelr/microblog-be/internal/auth"
	"github.com/isdelr/microblog-be/internal/feed"
	"github.com/rs/zerolog/log"
)

// feedView is the JSON body of every page that lists posts.
type feedView struct {
	Title   string            `json:"title"`
	Flashes []string          `json:"flashes"`
	Form    interface{}       `json:"form,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	feed.Page
	NextURL *string `json:"nextUrl"`
	PrevURL *string `json:"prevUrl"`
}

// formView is the JSON body of a page that only shows a form.
type formView struct {
	Title   string            `json:"title"`
	Flashes []string          `json:"flashes"`
	Form    interface{}       `json:"form"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeNotFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": msg})
}

func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// viewerID returns the authenticated user's ID. Routes using it sit behind auth.Require.
func viewerID(r *http.Request) string {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return ""
	}
	return claims.UserID
}

func isAuthenticated(r *http.Request) bool {
	_, ok := auth.ClaimsFromContext(r.Context())
	return ok
}

// pageParam reads the page query parameter, defaulting to 1 when missing or malformed.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		return 1
	}
	return page
}

// pageLinks returns the next and previous page URLs for base, nil where absent.
func pageLinks(base string, p feed.Page) (next, prev *string) {
	if p.HasNext {
		u := fmt.Sprintf("%s?page=%d", base, p.NextNum)
		next = &u
	}
	if p.HasPrev {
		u := fmt.Sprintf("%s?page=%d", base, p.PrevNum)
		prev = &u
	}
	return next, prev
}

func userPath(username string) string {
	return "/user/" + url.PathEscape(username)
}

// safeNext only accepts local absolute paths as a post-login target.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return "/"
	}
	return next
}
