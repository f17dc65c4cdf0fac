// Package server fans messages out to room members via the hub's broadcast
// helpers, isolating per-recipient delivery failures.
package server

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// broadcastTo delivers payload to every listed member except the excluded
// one. A recipient that is closed or has a full send buffer is skipped; one
// failed delivery never aborts delivery to the remaining recipients.
// Recipients that could not accept the message are detached from the hub so
// their rooms learn about the departure.
func (h *Hub) broadcastTo(members []*Client, payload []byte, exclude *Client) {
	if payload == nil {
		return
	}

	var failed []*Client

	for _, member := range members {
		if member == exclude {
			continue
		}
		if !h.safeSend(member, payload) {
			failed = append(failed, member)
		}
	}

	h.removeFailedClients(failed)
}

// removeFailedClients detaches clients whose send buffers were full or whose
// connections were already closed. Detaching triggers the same room cleanup
// as a normal disconnect.
func (h *Hub) removeFailedClients(clients []*Client) {
	if len(clients) == 0 {
		return
	}

	for _, client := range clients {
		h.mutex.RLock()
		_, registered := h.clients[client]
		h.mutex.RUnlock()
		if !registered {
			continue
		}

		client.log.Warn("Client removed due to full send buffer")
		h.dropClient(client)
	}
}

// sendTo delivers payload to a single client, suppressing delivery failure.
// Cleanup of a dead recipient is left to its disconnect notification.
func (h *Hub) sendTo(client *Client, payload []byte) {
	if payload == nil {
		return
	}
	_ = h.safeSend(client, payload)
}

// marshalMessage serializes an outbound message. The message types in this
// package cannot fail to marshal; a failure is logged and yields nil, which
// the send helpers treat as nothing to deliver.
func marshalMessage(v any) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal outbound message")
		return nil
	}
	return payload
}
