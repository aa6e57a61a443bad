package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/your-username/appsync-flow-simulator/internal/models"
)

type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Called with the client count after every change
	onChange func(int)

	// Closed once Run returns
	done chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// OnConnectionsChanged installs a callback receiving the client count
func (h *Hub) OnConnectionsChanged(fn func(int)) *Hub {
	h.onChange = fn
	return h
}

// Run serves register and unregister requests until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Info().Str("client_id", client.id).Msg("Client connected")
			h.changed(n)

			welcome := models.WebSocketMessage{
				Type: "connection",
				Data: map[string]string{
					"status":  "connected",
					"message": "Connected to simulator event stream",
				},
			}
			if msg, err := json.Marshal(welcome); err == nil {
				client.send <- msg
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				n := len(h.clients)
				h.mu.Unlock()
				log.Info().Str("client_id", client.id).Msg("Client disconnected")
				h.changed(n)
			} else {
				h.mu.Unlock()
			}

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.changed(0)
			return
		}
	}
}

// Forward broadcasts every event from a simulator subscription until ctx is
// done or the channel closes
func (h *Hub) Forward(ctx context.Context, events <-chan models.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			h.BroadcastEvent(e)
		}
	}
}

// BroadcastEvent sends an event to every client that is not paused and
// whose filter accepts it
func (h *Hub) BroadcastEvent(e models.Event) {
	message := models.WebSocketMessage{
		Type: string(e.Type),
		Data: e,
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Str("event", string(e.Type)).Msg("Failed to encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.Accepts(e.Type) {
			continue
		}
		select {
		case client.send <- msgBytes:
		default:
			log.Warn().Str("client_id", client.id).Msg("Client send buffer full")
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) changed(n int) {
	if h.onChange != nil {
		h.onChange(n)
	}
}
