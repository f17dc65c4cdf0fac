// Package server defines the wire envelope exchanged with editor clients and
// utility helpers that are reused across client and hub logic.
package server

import "strings"

// Actions recognized on inbound envelopes and used on outbound ones.
const (
	ActionCreateRoom      = "create-room"
	ActionJoinRoom        = "join-room"
	ActionUpdateContent   = "update-content"
	ActionRoomCreated     = "room-created"
	ActionLoadContent     = "load-content"
	ActionRoomJoined      = "room-joined"
	ActionUserCountUpdate = "user-count-update"
)

// User-facing error strings. Joins get explicit feedback; content updates to
// a vanished room are dropped silently instead (see Router.handleUpdate).
const (
	msgRoomExists   = "Room already exists. Please choose a different name."
	msgRoomNotFound = "Room not found. Please check the room code."
)

// envelope is the inbound message format. Unknown actions and extra fields
// are ignored rather than rejected.
type envelope struct {
	Action   string `json:"action"`
	RoomName string `json:"roomName"`
	Content  string `json:"content"`
}

// roomEventMessage acknowledges a room action back to the requesting client.
type roomEventMessage struct {
	Action   string `json:"action"`
	RoomName string `json:"roomName"`
}

// loadContentMessage carries the current document to a freshly joined client.
type loadContentMessage struct {
	Action   string `json:"action"`
	Content  string `json:"content"`
	RoomName string `json:"roomName"`
}

// userCountMessage notifies room members of the current occupancy.
type userCountMessage struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// contentUpdateMessage relays a document replacement to other room members.
type contentUpdateMessage struct {
	Action  string `json:"action"`
	Content string `json:"content"`
}

// errorMessage surfaces a room-scoped failure to the requesting client only.
type errorMessage struct {
	Error string `json:"error"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
