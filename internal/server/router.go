// Package server dispatches inbound envelopes to registry operations and
// triggers the resulting broadcasts via the Router type.
package server

import (
	"encoding/json"
	"errors"
)

// Router is the single entry point for inbound messages. It parses the
// envelope, dispatches by action tag, and relays the registry's answer back
// to the sender and to the affected room. Malformed payloads and unknown
// actions are dropped without closing the connection; they are protocol
// noise, not faults.
type Router struct {
	hub *Hub
}

// NewRouter creates a router bound to the hub whose registry and connections
// it operates on.
func NewRouter(h *Hub) *Router {
	return &Router{hub: h}
}

// HandleMessage processes one raw inbound frame from a client.
func (rt *Router) HandleMessage(client *Client, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		client.log.WithError(err).Debug("Dropping malformed message")
		return
	}

	switch env.Action {
	case ActionCreateRoom:
		rt.handleCreate(client, env)
	case ActionJoinRoom:
		rt.handleJoin(client, env)
	case ActionUpdateContent:
		rt.handleUpdate(client, env)
	default:
		client.log.WithField("action", env.Action).Debug("Dropping message with unrecognized action")
	}
}

// HandleDisconnect removes the client from every room it joined and tells
// the remaining members of each affected room the new occupancy. Safe to
// call for clients that never joined a room.
func (rt *Router) HandleDisconnect(client *Client) {
	for _, change := range rt.hub.registry.RemoveClient(client) {
		client.log.WithField("room", change.Name).WithField("count", change.Count).Info("Client left room")
		rt.hub.broadcastTo(change.Members, marshalMessage(userCountMessage{
			Action: ActionUserCountUpdate,
			Count:  change.Count,
		}), nil)
	}
}

func (rt *Router) handleCreate(client *Client, env envelope) {
	if err := rt.hub.registry.CreateRoom(env.RoomName); err != nil {
		if errors.Is(err, ErrRoomExists) {
			rt.hub.sendTo(client, marshalMessage(errorMessage{Error: msgRoomExists}))
		}
		return
	}

	client.log.WithField("room", env.RoomName).Info("Room created")
	rt.hub.sendTo(client, marshalMessage(roomEventMessage{
		Action:   ActionRoomCreated,
		RoomName: env.RoomName,
	}))
}

func (rt *Router) handleJoin(client *Client, env envelope) {
	snapshot, err := rt.hub.registry.JoinRoom(env.RoomName, client)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			rt.hub.sendTo(client, marshalMessage(errorMessage{Error: msgRoomNotFound}))
		}
		return
	}

	rt.hub.sendTo(client, marshalMessage(loadContentMessage{
		Action:   ActionLoadContent,
		Content:  snapshot.Content,
		RoomName: env.RoomName,
	}))
	rt.hub.sendTo(client, marshalMessage(roomEventMessage{
		Action:   ActionRoomJoined,
		RoomName: env.RoomName,
	}))

	client.log.WithField("room", env.RoomName).WithField("count", snapshot.Count).Info("Client joined room")

	// Everyone in the room, the joiner included, learns the new occupancy.
	rt.hub.broadcastTo(snapshot.Members, marshalMessage(userCountMessage{
		Action: ActionUserCountUpdate,
		Count:  snapshot.Count,
	}), nil)
}

func (rt *Router) handleUpdate(client *Client, env envelope) {
	members, ok := rt.hub.registry.UpdateContent(env.RoomName, env.Content, client)
	if !ok {
		// The room disappeared under the sender; a background sync should
		// not surface a protocol error mid-edit.
		return
	}

	client.log.WithField("room", env.RoomName).Debug("Content updated")
	rt.hub.broadcastTo(members, marshalMessage(contentUpdateMessage{
		Action:  ActionUpdateContent,
		Content: env.Content,
	}), nil)
}
