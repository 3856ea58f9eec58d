// Package notify fans simulation changes out to live subscribers such as the
// HTTP event stream.
package notify

import (
	"sync"

	"laddersim/internal/domain"
)

// Event types.
const (
	TypeOrder   = "order"   // an order was placed, sold or cancelled
	TypeAdvance = "advance" // the current day moved; Events holds settlements
	TypeReset   = "reset"
)

// Event is the wire format for stream messages.
type Event struct {
	Type   string         `json:"type"`
	Date   string         `json:"date"` // current day after the change
	Events []domain.Event `json:"events,omitempty"`
}

// Hub broadcasts events to subscribers. Slow consumers have events dropped
// rather than blocking publishers.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewHub creates a Hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel that receives events. bufSize controls the
// channel buffer.
func (h *Hub) Subscribe(bufSize int) (int, <-chan Event) {
	ch := make(chan Event, bufSize)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish sends e to every subscriber without blocking.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			// Slow consumer: drop.
		}
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
