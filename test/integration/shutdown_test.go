package integration

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/collabpad/collabpad/internal/server"
	"github.com/collabpad/collabpad/test/testhelpers"
)

// TestGracefulShutdown verifies a hub shuts down cleanly within its timeout.
func TestGracefulShutdown(t *testing.T) {
	hub := server.NewHub()

	go hub.Run()
	time.Sleep(50 * time.Millisecond)

	if err := hub.Shutdown(5 * time.Second); err != nil {
		t.Errorf("Hub shutdown failed: %v", err)
	}
}

// TestGracefulShutdownWithClients verifies that active client connections are
// closed during graceful shutdown: every connected client's read loop must
// terminate rather than hang on a dead hub.
func TestGracefulShutdownWithClients(t *testing.T) {
	hub := server.NewHub()
	go hub.Run()
	time.Sleep(50 * time.Millisecond)

	// Dedicated endpoint registering clients with this test's hub, so the
	// shutdown under test is the one the clients are attached to.
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if !hub.Register(server.NewClient(conn, hub, r.RemoteAddr)) {
			_ = conn.Close()
		}
	}))
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	numClients := 5
	clients := make([]*websocket.Conn, numClients)
	for i := range clients {
		conn, err := testhelpers.ConnectWebSocket(wsURL)
		if err != nil {
			t.Fatalf("Failed to connect client %d: %v", i, err)
		}
		t.Cleanup(func() { _ = conn.Close() })
		clients[i] = conn
	}

	// Let every registration reach the hub before shutting down.
	time.Sleep(100 * time.Millisecond)

	if err := hub.Shutdown(5 * time.Second); err != nil {
		t.Errorf("Hub shutdown failed: %v", err)
	}

	for i, conn := range clients {
		if err := conn.SetReadDeadline(time.Now().Add(3 * time.Second)); err != nil {
			t.Fatalf("Failed to set read deadline on client %d: %v", i, err)
		}
		_, _, err := conn.ReadMessage()
		if err == nil {
			t.Errorf("Client %d still connected after shutdown", i)
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Errorf("Client %d read timed out instead of observing the close", i)
		}
	}
}

// TestShutdownCancelsPendingDeletions verifies shutdown stops outstanding
// room deletion timers so none fire against a discarded registry.
func TestShutdownCancelsPendingDeletions(t *testing.T) {
	hub := server.NewHub()

	go hub.Run()
	time.Sleep(50 * time.Millisecond)

	for _, name := range []string{"pending-a", "pending-b"} {
		if err := hub.Registry().CreateRoom(name); err != nil {
			t.Fatalf("CreateRoom %s failed: %v", name, err)
		}
	}

	if err := hub.Shutdown(5 * time.Second); err != nil {
		t.Errorf("Hub shutdown failed: %v", err)
	}

	// Timers were cancelled; the rooms remain until the process exits.
	if _, ok := hub.Registry().RoomInfo("pending-a"); !ok {
		t.Error("Pending deletion fired after shutdown")
	}
}

// TestShutdownTimeout verifies the shutdown deadline is respected.
func TestShutdownTimeout(t *testing.T) {
	hub := server.NewHub()
	go hub.Run()

	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	_ = hub.Shutdown(50 * time.Millisecond)
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Shutdown took %v, expected around 50ms", elapsed)
	}
}
