package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Event types pushed to dashboard clients.
const (
	// EventSnapshot carries the full state, sent once when a client joins.
	EventSnapshot = "state.snapshot"
	// EventUpdated carries the full state after every committed change.
	EventUpdated = "state.updated"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Version uint64          `json:"version,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// storeEvent routes an event to one store's room
type storeEvent struct {
	StoreID uuid.UUID
	Event   Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by store ID
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *storeEvent

	// Closed once Run has returned
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *storeEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and blocks until ctx is cancelled, at
// which point every client is disconnected.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for storeID, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, storeID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.storeID] == nil {
				h.rooms[client.storeID] = make(map[*Client]bool)
			}
			h.rooms[client.storeID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.StoreID] {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, drop it
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.storeID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.storeID)
	}
}

// Register adds a client to its store's room. It reports false if the hub
// has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client. Safe to call after the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToStore sends an event to all clients watching a store.
// It is a no-op once the hub has stopped.
func (h *Hub) BroadcastToStore(storeID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &storeEvent{StoreID: storeID, Event: event}:
	case <-h.done:
	}
}

// Clients returns the number of clients watching a store.
func (h *Hub) Clients(storeID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[storeID])
}
