// Package app assembles the services, router and background jobs of the server.
package app

import (
	"net/http"

	"github.com/isdelr/microblog-be/internal/api"
	"github.com/isdelr/microblog-be/internal/auth"
	"github.com/isdelr/microblog-be/internal/config"
	"github.com/isdelr/microblog-be/internal/database"
	"github.com/isdelr/microblog-be/internal/feed"
	"github.com/isdelr/microblog-be/internal/graph"
	"github.com/isdelr/microblog-be/internal/jobs"
	"github.com/isdelr/microblog-be/internal/services"
	"github.com/isdelr/microblog-be/internal/websocket"
)

// App is a fully wired server.
type App struct {
	Router http.Handler
	Hub    *websocket.Hub
	Pruner *jobs.Pruner
}

// New wires every component on top of db.
func New(cfg *config.Config, db *database.DB) *App {
	hub := websocket.NewHub()
	edges := graph.NewSQLSet(db)

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, eventService)
	postService := services.NewPostService(db, edges, eventService, hub)
	followService := services.NewFollowService(edges, userService, eventService)
	composer := feed.NewComposer(postService, edges, cfg.PostsPerPage)

	router := api.NewRouter(api.Dependencies{
		Auth:           auth.NewAuthenticator(cfg.SecretKey, cfg.IsProduction()),
		Hub:            hub,
		Users:          userService,
		Posts:          postService,
		Follows:        followService,
		Events:         eventService,
		Composer:       composer,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	return &App{
		Router: router,
		Hub:    hub,
		Pruner: jobs.NewPruner(eventService, cfg.Activity.Retention, cfg.Activity.PruneCron),
	}
}
