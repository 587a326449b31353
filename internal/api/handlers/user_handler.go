package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/microblog-be/internal/auth"
	"github.com/isdelr/microblog-be/internal/feed"
	"github.com/isdelr/microblog-be/internal/flash"
	"github.com/isdelr/microblog-be/internal/models"
	"github.com/isdelr/microblog-be/internal/services"
	"github.com/rs/zerolog/log"
)

// ProfileAvatarSize is the avatar size shown on profile pages.
const ProfileAvatarSize = 128

// UserHandler handles sign-in, registration and profile pages.
type UserHandler struct {
	users    services.UserServiceProvider
	follows  services.FollowServiceProvider
	composer *feed.Composer
	auth     *auth.Authenticator
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users services.UserServiceProvider, follows services.FollowServiceProvider, composer *feed.Composer, authenticator *auth.Authenticator) *UserHandler {
	return &UserHandler{users: users, follows: follows, composer: composer, auth: authenticator}
}

// LoginPage shows the sign-in form.
func (h *UserHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if isAuthenticated(r) {
		redirect(w, r, "/")
		return
	}
	writeJSON(w, http.StatusOK, formView{Title: "Sign In", Flashes: flash.Pop(w, r), Form: LoginForm{}})
}

// Login handles user authentication and sets the token cookie.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	if isAuthenticated(r) {
		redirect(w, r, "/")
		return
	}

	var form LoginForm
	if err := bind(r, &form); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if errs := validateForm(&form); errs != nil {
		form.Password = ""
		writeJSON(w, http.StatusUnprocessableEntity, formView{Title: "Sign In", Flashes: flash.Pop(w, r), Form: form, Errors: errs})
		return
	}

	user, err := h.users.AuthenticateUser(r.Context(), form.Username, form.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		log.Warn().Str("username", form.Username).Msg("Failed authentication attempt")
		flash.Add(w, r, "Invalid username or password")
		redirect(w, r, "/login")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("username", form.Username).Msg("Failed to authenticate user")
		http.Error(w, "Failed to sign in", http.StatusInternalServerError)
		return
	}

	ttl := auth.SessionTTL
	if form.RememberMe {
		ttl = auth.RememberTTL
	}
	token, expires, err := h.auth.GenerateJWT(user, ttl)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	h.auth.SetCookie(w, token, expires, form.RememberMe)

	next := r.URL.Query().Get("next")
	if next == "" {
		next = r.PostFormValue("next")
	}
	redirect(w, r, safeNext(next))
}

// Logout ends the session.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.ClearCookie(w)
	redirect(w, r, "/")
}

// RegisterPage shows the registration form.
func (h *UserHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if isAuthenticated(r) {
		redirect(w, r, "/")
		return
	}
	writeJSON(w, http.StatusOK, formView{Title: "Register", Flashes: flash.Pop(w, r), Form: RegistrationForm{}})
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if isAuthenticated(r) {
		redirect(w, r, "/")
		return
	}

	var form RegistrationForm
	if err := bind(r, &form); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	errs, err := h.validateRegistration(r, &form)
	if err != nil {
		log.Error().Err(err).Str("username", form.Username).Msg("Failed to validate registration")
		http.Error(w, "Failed to register user", http.StatusInternalServerError)
		return
	}
	if errs == nil {
		_, err = h.users.CreateUser(r.Context(), form.Username, form.Email, form.Password)
		switch {
		case errors.Is(err, services.ErrUsernameTaken):
			errs = map[string]string{"username": "Please use a different username."}
		case errors.Is(err, services.ErrEmailTaken):
			errs = map[string]string{"email": "Please use a different email address."}
		case err != nil:
			log.Error().Err(err).Str("username", form.Username).Msg("Failed to register user")
			http.Error(w, "Failed to register user", http.StatusInternalServerError)
			return
		}
	}
	if errs != nil {
		form.Password, form.Password2 = "", ""
		writeJSON(w, http.StatusUnprocessableEntity, formView{Title: "Register", Flashes: flash.Pop(w, r), Form: form, Errors: errs})
		return
	}

	flash.Add(w, r, "Congratulations, you are now a registered user!")
	redirect(w, r, "/login")
}

// validateRegistration checks the field rules and that username and email are unused.
func (h *UserHandler) validateRegistration(r *http.Request, form *RegistrationForm) (map[string]string, error) {
	errs := validateForm(form)
	if errs == nil {
		errs = map[string]string{}
	}
	if _, bad := errs["username"]; !bad {
		taken, err := h.users.UsernameTaken(r.Context(), form.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			errs["username"] = "Please use a different username."
		}
	}
	if _, bad := errs["email"]; !bad {
		taken, err := h.users.EmailTaken(r.Context(), form.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			errs["email"] = "Please use a different email address."
		}
	}
	if len(errs) == 0 {
		return nil, nil
	}
	return errs, nil
}

// profileView is the JSON body of a profile page.
type profileView struct {
	feedView
	User        models.Profile `json:"user"`
	IsSelf      bool           `json:"isSelf"`
	IsFollowing bool           `json:"isFollowing"`
}

// Profile shows a user with a page of their posts.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	ctx := r.Context()

	user, err := h.users.GetUserByUsername(ctx, username)
	if errors.Is(err, services.ErrUserNotFound) {
		writeNotFound(w, fmt.Sprintf("User %s not found", username))
		return
	}
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("Failed to load user")
		http.Error(w, "Failed to load user", http.StatusInternalServerError)
		return
	}

	page, err := h.composer.UserPosts(ctx, user.ID, pageParam(r))
	if errors.Is(err, feed.ErrPageNotFound) {
		writeNotFound(w, "Page not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to load user posts")
		http.Error(w, "Failed to load posts", http.StatusInternalServerError)
		return
	}

	followers, following, err := h.follows.Counts(ctx, user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to count follows")
		http.Error(w, "Failed to load user", http.StatusInternalServerError)
		return
	}

	viewer := viewerID(r)
	isSelf := viewer == user.ID
	var isFollowing bool
	if !isSelf {
		if isFollowing, err = h.follows.IsFollowing(ctx, viewer, user.ID); err != nil {
			log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to check follow state")
			http.Error(w, "Failed to load user", http.StatusInternalServerError)
			return
		}
	}

	profile := models.Profile{
		User:           user,
		Avatar:         user.Avatar(ProfileAvatarSize),
		FollowerCount:  followers,
		FollowingCount: following,
	}
	if !isSelf {
		profile.Email = ""
	}

	next, prev := pageLinks(userPath(user.Username), page)
	writeJSON(w, http.StatusOK, profileView{
		feedView: feedView{
			Title:   user.Username,
			Flashes: flash.Pop(w, r),
			Page:    page,
			NextURL: next,
			PrevURL: prev,
		},
		User:        profile,
		IsSelf:      isSelf,
		IsFollowing: isFollowing,
	})
}

// EditProfilePage shows the profile form filled with the viewer's data.
func (h *UserHandler) EditProfilePage(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUserByID(r.Context(), viewerID(r))
	if err != nil {
		log.Error().Err(err).Str("user_id", viewerID(r)).Msg("Failed to load viewer")
		http.Error(w, "Failed to load profile", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, formView{
		Title:   "Edit Profile",
		Flashes: flash.Pop(w, r),
		Form:    EditProfileForm{Username: user.Username, AboutMe: user.AboutMe},
	})
}

// EditProfile saves the viewer's username and about-me text.
func (h *UserHandler) EditProfile(w http.ResponseWriter, r *http.Request) {
	var form EditProfileForm
	if err := bind(r, &form); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	errs := validateForm(&form)
	if errs == nil {
		_, err := h.users.UpdateProfile(r.Context(), viewerID(r), form.Username, form.AboutMe)
		switch {
		case errors.Is(err, services.ErrUsernameTaken):
			errs = map[string]string{"username": "Please use a different username."}
		case err != nil:
			log.Error().Err(err).Str("user_id", viewerID(r)).Msg("Failed to update profile")
			http.Error(w, "Failed to update profile", http.StatusInternalServerError)
			return
		}
	}
	if errs != nil {
		writeJSON(w, http.StatusUnprocessableEntity, formView{Title: "Edit Profile", Flashes: flash.Pop(w, r), Form: form, Errors: errs})
		return
	}

	flash.Add(w, r, "Your changes have been saved")
	redirect(w, r, "/edit_profile")
}
