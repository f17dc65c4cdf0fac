// Package server coordinates client registration, room membership cleanup,
// and connection shutdown for the CollabPad WebSocket system via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Hub supervises all WebSocket client connections. It owns the room registry
// and the message router, launches the per-client pump goroutines, and tears
// everything down on shutdown.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	registry   *Registry
	router     *Router
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates and initializes a new Hub instance with an empty room
// registry. The returned Hub is ready to manage WebSocket connections once
// Run is called.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		registry:   NewRegistry(0),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.router = NewRouter(h)
	return h
}

// GetRegisterChan returns the channel used for registering new clients to the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients from the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// Register hands a client to the event loop. Once the hub has shut down the
// hand-off is refused instead of blocking the caller forever on a loop that
// no longer drains the channel. Reports whether the client was accepted.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Registry exposes the hub's room registry for the HTTP status endpoints.
func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("recover", r).Warn("Recovered from panic in safeSend")
		}
	}()

	// Hold the lock during the entire send operation so the send channel
	// cannot be closed out from under us.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// Run starts the hub's main event loop, handling client registration and
// unregistration. This method should be called in a separate goroutine as it
// runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				logrus.Warn("Received nil client registration; skipping")
				continue
			}

			h.mutex.Lock()
			client.closed = false
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mutex.Unlock()
			client.log.WithField("total_clients", clientCount).Info("Client connected")

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.dropClient(client)
		}
	}
}

var hub = NewHub()

// dropClient detaches a client from the hub and from every room it joined,
// notifying the remaining members of each affected room. Safe to call more
// than once for the same client.
func (h *Hub) dropClient(client *Client) {
	h.mutex.Lock()
	_, registered := h.clients[client]
	if registered {
		delete(h.clients, client)
		client.closed = true
	}
	clientCount := len(h.clients)
	h.mutex.Unlock()

	if registered {
		// Close the channel after releasing the lock.
		close(client.send)
		client.log.WithField("total_clients", clientCount).Info("Client disconnected")
	}

	h.router.HandleDisconnect(client)
}

// shutdownClients gracefully closes all active client connections and stops
// any pending room deletion timers.
func (h *Hub) shutdownClients() {
	logrus.Info("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					client.log.WithError(err).Warn("Error closing client connection")
				}
			}
		}
		// Detach the client as well: closing its send channel lets the write
		// pump exit immediately instead of waiting for the next ping.
		h.dropClient(client)
	}

	// After the drop loop so timers armed by emptied rooms are stopped too.
	h.registry.StopTimers()

	logrus.WithField("count", len(clients)).Info("Closed client connections")
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines
// to complete. It returns after all client connections are closed and
// goroutines have finished, or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	logrus.Info("Initiating hub shutdown...")

	h.cancel()

	// Wait for Run() to complete.
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		logrus.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
