package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes groups the handlers mounted under /api.
type Routes struct {
	Tasks         *TaskHandler
	Teams         *TeamHandler
	Notifications *NotificationHandler
}

// Register mounts every /api route on r behind authenticate.
func (rt Routes) Register(r chi.Router, authenticate func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Use(authenticate)

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", rt.Tasks.CreateTask)
			r.Get("/", rt.Tasks.ListTasks)
			r.Get("/{id}", rt.Tasks.GetTask)
			r.Put("/{id}", rt.Tasks.UpdateTask)
			r.Patch("/{id}", rt.Tasks.PatchTask)
			r.Delete("/{id}", rt.Tasks.DeleteTask)
		})

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", rt.Teams.CreateTeam)
			r.Get("/", rt.Teams.ListTeams)
			r.Get("/{id}", rt.Teams.GetTeam)
			r.Put("/{id}", rt.Teams.UpdateTeam)
			r.Delete("/{id}", rt.Teams.DeleteTeam)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/", rt.Notifications.CreateNotification)
			r.Get("/", rt.Notifications.ListNotifications)
			r.Get("/preferences", rt.Notifications.GetPreferences)
			r.Patch("/preferences", rt.Notifications.UpdatePreferences)
			r.Patch("/{id}/read", rt.Notifications.MarkRead)
			r.Delete("/{id}", rt.Notifications.DeleteNotification)
		})
	})
}
