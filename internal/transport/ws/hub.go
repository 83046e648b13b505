package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/stipe44/murmur/internal/metrics"
)

// Hub owns the connection registry: one client per user. The chat core never
// touches it directly; it goes through the Bridge.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	// onDisconnect, if set, runs after a client unregisters (last-seen bookkeeping).
	onDisconnect func(userID uuid.UUID)
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetOnDisconnect installs the disconnect callback. Call before Run.
func (h *Hub) SetOnDisconnect(fn func(userID uuid.UUID)) {
	h.onDisconnect = fn
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
			log.Printf("ws hub: user %s connected (%d total)", client.userID, h.count())

		case client := <-h.unregister:
			if h.removeClient(client) {
				log.Printf("ws hub: user %s disconnected (%d total)", client.userID, h.count())
				if h.onDisconnect != nil {
					h.onDisconnect(client.userID)
				}
			}
		}
	}
}

// SendToUser pushes raw event data to a user's connection, dropping it if the
// user is offline or their buffer is full. The send happens under the read
// lock: addClient/removeClient close the channel under the write lock, so the
// send can never hit a closed channel.
func (h *Hub) SendToUser(userID uuid.UUID, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[userID]
	if !ok {
		return false
	}
	select {
	case client.send <- data:
		return true
	default:
		return false
	}
}

// SendEvent wraps payload in the event envelope and pushes it to a user.
func (h *Hub) SendEvent(userID uuid.UUID, eventType string, payload any) {
	evt, err := NewEvent(eventType, payload)
	if err != nil {
		log.Printf("ws hub: marshal error: %v", err)
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("ws hub: marshal error: %v", err)
		return
	}
	if h.SendToUser(userID, data) {
		metrics.NotificationsPushed.Inc()
	}
}

// Lookup returns the client currently connected for userID, if any.
func (h *Hub) Lookup(userID uuid.UUID) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[userID]
	return client, ok
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// A reconnect replaces the previous connection.
	if old, ok := h.clients[client.userID]; ok {
		close(old.send)
		close(old.done)
	} else {
		metrics.ActiveConnections.Inc()
	}
	h.clients[client.userID] = client
}

func (h *Hub) removeClient(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.clients[client.userID]; ok && current == client {
		delete(h.clients, client.userID)
		close(client.send)
		close(client.done)
		metrics.ActiveConnections.Dec()
		return true
	}
	return false
}

func (h *Hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
