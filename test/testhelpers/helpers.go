// Package testhelpers provides common utilities and helper functions for testing the CollabPad server.
//
// This package contains reusable test utilities that are shared across unit and integration tests.
// It provides functions for creating test servers, speaking the room protocol over WebSocket
// connections, and asserting response properties to reduce code duplication in test files.
package testhelpers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// AssertStatusCode checks if the HTTP response has the expected status code.
// It fails the test with a descriptive error message if the status codes don't match.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
// It fails the test with a descriptive error message if the content types don't match.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// ConnectWebSocket creates a WebSocket connection to the specified URL.
// It returns the connection or an error if connection fails.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	// Set a proper origin header so the upgrade passes the origin check.
	headers := http.Header{}
	headers.Set("Origin", "http://localhost:8080")

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

var roomCounter atomic.Int64

// UniqueRoomName returns a room name that is unique within the test run so
// tests sharing the global hub never collide.
func UniqueRoomName(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), roomCounter.Add(1))
}

// SendCreateRoom sends a create-room envelope over the connection.
func SendCreateRoom(t *testing.T, conn *websocket.Conn, room string) {
	t.Helper()
	if err := conn.WriteJSON(map[string]string{"action": "create-room", "roomName": room}); err != nil {
		t.Fatalf("Failed to send create-room: %v", err)
	}
}

// SendJoinRoom sends a join-room envelope over the connection.
func SendJoinRoom(t *testing.T, conn *websocket.Conn, room string) {
	t.Helper()
	if err := conn.WriteJSON(map[string]string{"action": "join-room", "roomName": room}); err != nil {
		t.Fatalf("Failed to send join-room: %v", err)
	}
}

// SendContentUpdate sends an update-content envelope over the connection.
func SendContentUpdate(t *testing.T, conn *websocket.Conn, room, content string) {
	t.Helper()
	if err := conn.WriteJSON(map[string]string{
		"action":   "update-content",
		"roomName": room,
		"content":  content,
	}); err != nil {
		t.Fatalf("Failed to send update-content: %v", err)
	}
}

// ReceiveMessage reads one JSON message from the connection with a deadline.
func ReceiveMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) (map[string]interface{}, error) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	var message map[string]interface{}
	err := conn.ReadJSON(&message)
	return message, err
}

// ExpectAction reads messages until one carries the expected action, failing
// the test if it does not arrive before the timeout. Intervening messages
// with other actions are skipped.
func ExpectAction(t *testing.T, conn *websocket.Conn, action string, timeout time.Duration) map[string]interface{} {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("Timed out waiting for action %q", action)
		}
		message, err := ReceiveMessage(t, conn, remaining)
		if err != nil {
			t.Fatalf("Error waiting for action %q: %v", action, err)
		}
		if message["action"] == action {
			return message
		}
	}
}

// ExpectErrorMessage reads the next message and asserts it carries the given
// error text.
func ExpectErrorMessage(t *testing.T, conn *websocket.Conn, expected string) {
	t.Helper()

	message, err := ReceiveMessage(t, conn, 2*time.Second)
	if err != nil {
		t.Fatalf("Error waiting for error message: %v", err)
	}
	errText, ok := message["error"].(string)
	if !ok {
		t.Fatalf("Expected error message, got %v", message)
	}
	if errText != expected {
		t.Errorf("Expected error %q, got %q", expected, errText)
	}
}

// ExpectNoMessage asserts that nothing arrives on the connection within the
// given duration.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, within time.Duration) {
	t.Helper()

	message, err := ReceiveMessage(t, conn, within)
	if err == nil {
		t.Errorf("Expected no message, got %v", message)
	}
}

// AssertCount asserts a user-count-update message carries the expected count.
func AssertCount(t *testing.T, message map[string]interface{}, expected int) {
	t.Helper()

	count, ok := message["count"].(float64)
	if !ok {
		t.Fatalf("Message does not contain a numeric 'count' field: %v", message)
	}
	if int(count) != expected {
		t.Errorf("Expected count %d, got %d", expected, int(count))
	}
}

// AssertContent asserts a message carries the expected content field.
func AssertContent(t *testing.T, message map[string]interface{}, expected string) {
	t.Helper()

	content, ok := message["content"].(string)
	if !ok {
		t.Errorf("Message does not contain 'content' field: %v", message)
		return
	}
	if content != expected {
		t.Errorf("Expected content %q, got %q", expected, content)
	}
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
