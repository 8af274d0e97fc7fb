package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/teamtask-api/internal/api"
	apiMiddleware "github.com/phrazzld/teamtask-api/internal/api/middleware"
	"github.com/phrazzld/teamtask-api/internal/realtime"
)

// setupRouter creates the router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.logger)

	r.Method(http.MethodGet, "/health", api.NewHealthHandler(app.db, app.logger))

	// Browsers cannot set headers on a WebSocket handshake, so the token may
	// also arrive as a query parameter here.
	ws := realtime.NewHandler(
		app.hub,
		apiMiddleware.GetUserID,
		realtime.ClientConfigFrom(app.config.Realtime),
		app.config.Realtime.AllowedOrigins,
		app.logger,
	)
	r.With(authMiddleware.AuthenticateWebSocket).Method(http.MethodGet, "/ws", ws)

	api.Routes{
		Tasks:         api.NewTaskHandler(app.taskService, app.logger),
		Teams:         api.NewTeamHandler(app.teamService, app.logger),
		Notifications: api.NewNotificationHandler(app.notificationService, app.logger),
	}.Register(r, authMiddleware.Authenticate)

	return r
}
