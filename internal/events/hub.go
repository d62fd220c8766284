package events

import "sync"

// Hub fans events out to subscriber channels. The SSE and WebSocket feeds
// each hold one subscription; the runner publishes into the hub like any
// other Notifier.
type Hub struct {
	clients    map[chan Event]bool
	broadcast  chan Event
	register   chan chan Event
	unregister chan chan Event
	mu         sync.RWMutex
}

// NewHub creates a new event hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[chan Event]bool),
		broadcast:  make(chan Event, 64),
		register:   make(chan chan Event),
		unregister: make(chan chan Event),
	}
}

// Run starts the hub's dispatch loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client <- event:
				default:
					// Slow consumer, drop it rather than stall the runner
					close(client)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Subscribe registers a new subscriber channel. The returned cancel func
// must be called when the subscriber goes away.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	client := make(chan Event, 64)
	h.register <- client
	return client, func() { h.unregister <- client }
}

// Publish broadcasts an event to all subscribers. Never blocks the caller:
// if the hub is saturated the event is dropped.
func (h *Hub) Publish(e Event) error {
	select {
	case h.broadcast <- e:
	default:
	}
	return nil
}
