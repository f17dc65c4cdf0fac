// Package server wires HTTP handlers into a chi router for the CollabPad
// application.
package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// SetupRoutes configures and returns the application router: the WebSocket
// endpoint, the status API, the health check, and the editor page.
func SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/health", HealthHandler)
	r.Get("/ws", WebSocketHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"https://*", "http://*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Get("/stats", StatsHandler)
		r.Get("/room/{roomName}/info", RoomInfoHandler)
	})

	r.Get("/", EditorPageHandler)
	r.Get("/room/{roomName}", EditorPageHandler)

	return r
}
