// Package websocket carries nest change notifications. The Hub side runs in
// the backend; feed subscribers decode the same Message.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Actions sent in change messages.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Message tells subscribers that an entity of a nest changed. Entity is a
// sync resource name such as "todos" or "budget".
type Message struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     int64  `json:"id,omitempty"`
}

func NewMessage(entity, action string, id int64) Message {
	return Message{
		Type:   entity + "_" + action,
		Entity: entity,
		Action: action,
		ID:     id,
	}
}

// Hub tracks connected clients per nest and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.nestID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.nestID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.nestID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.nestID)
	}
}

// Broadcast sends msg to every client subscribed to nestID.
func (h *Hub) Broadcast(nestID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[nestID] {
		select {
		case c.send <- data:
		default:
			// Slow client; drop rather than block the backend.
			h.logger.Warn("dropped change message", "nest_id", nestID, "type", msg.Type)
		}
	}
}

// ClientCount returns the number of clients subscribed to nestID.
func (h *Hub) ClientCount(nestID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[nestID])
}
