package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/microblog-be/internal/api/handlers"
	"github.com/isdelr/microblog-be/internal/auth"
	"github.com/isdelr/microblog-be/internal/feed"
	"github.com/isdelr/microblog-be/internal/services"
	"github.com/isdelr/microblog-be/internal/websocket"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Dependencies are the collaborators the router wires into its handlers.
type Dependencies struct {
	Auth           *auth.Authenticator
	Hub            *websocket.Hub
	Users          services.UserServiceProvider
	Posts          services.PostServiceProvider
	Follows        services.FollowServiceProvider
	Events         services.EventServiceProvider
	Composer       *feed.Composer
	AllowedOrigins []string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(deps.Auth.Viewer())
	r.Use(touchLastSeen(deps.Users))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(deps.Users, deps.Follows, deps.Composer, deps.Auth)
	feedHandler := handlers.NewFeedHandler(deps.Posts, deps.Composer)
	followHandler := handlers.NewFollowHandler(deps.Follows)
	eventHandler := handlers.NewEventHandler(deps.Events)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.AllowedOrigins)

	r.Get("/login", userHandler.LoginPage)
	r.Post("/login", userHandler.Login)
	r.Get("/logout", userHandler.Logout)
	r.Get("/register", userHandler.RegisterPage)
	r.Post("/register", userHandler.Register)

	r.Group(func(r chi.Router) {
		r.Use(auth.Require("/login"))

		r.Get("/", feedHandler.Index)
		r.Post("/", feedHandler.Submit)
		r.Get("/index", feedHandler.Index)
		r.Post("/index", feedHandler.Submit)
		r.Get("/explore", feedHandler.Explore)

		r.Get("/user/{username}", userHandler.Profile)
		r.Get("/edit_profile", userHandler.EditProfilePage)
		r.Post("/edit_profile", userHandler.EditProfile)

		r.Get("/follow/{username}", followHandler.Follow)
		r.Get("/unfollow/{username}", followHandler.Unfollow)

		r.Get("/activity", eventHandler.GetRecent)
		r.Get("/ws", wsHandler.Serve)
	})

	return r
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

// touchLastSeen records the viewer's activity on every authenticated request.
// A token whose user no longer exists is treated as anonymous.
func touchLastSeen(users services.UserServiceProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if ok {
				err := users.TouchLastSeen(r.Context(), claims.UserID)
				switch {
				case errors.Is(err, services.ErrUserNotFound):
					r = r.WithContext(auth.WithClaims(r.Context(), nil))
				case err != nil:
					log.Warn().Err(err).Str("user_id", claims.UserID).Msg("Failed to update last seen")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
