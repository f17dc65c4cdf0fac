// Package server exposes HTTP handlers, including WebSocket upgrades, the
// room status API, and health checks.
package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler handles WebSocket upgrade requests and hands the resulting
// connection to the hub, which launches the client's read/write pumps.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := NewClient(conn, hub, r.RemoteAddr)

	// Register the client with the hub; the hub will launch the pump goroutines.
	if !hub.Register(client) {
		logrus.Warn("Hub is shut down; refusing new WebSocket connection")
		_ = conn.Close()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "CollabPad server is running!")
}

// RoomInfoHandler serves occupancy and timestamps for a single room, or a
// 404 if no room has the requested name.
func RoomInfoHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "roomName")

	info, ok := hub.Registry().RoomInfo(name)
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "Room not found"})
		return
	}

	render.JSON(w, r, info)
}

// StatsHandler serves a snapshot of every room with aggregate totals.
func StatsHandler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, hub.Registry().Stats())
}
