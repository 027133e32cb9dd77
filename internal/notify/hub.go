// Package notify delivers operation outcomes to interested parties.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"salvadanaio/internal/core"
)

// Event is a single message on the outcome stream.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

const (
	EventConnected = "connected"
	EventOutcome   = "outcome"
)

// Hub fans events out to SSE subscribers. Slow subscribers miss events
// instead of blocking the publisher.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]chan Event
	buffer      int
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]chan Event),
		buffer:      16,
	}
}

// Subscribe registers a subscriber and returns its id, its channel and the
// function that unsubscribes it and closes the channel.
func (h *Hub) Subscribe() (uuid.UUID, <-chan Event, func()) {
	id := uuid.New()
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return id, ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers, id)
			close(ch)
		})
	}
}

// Publish sends event to every subscriber.
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Notify publishes an outcome event.
func (h *Hub) Notify(_ context.Context, o core.Outcome) {
	h.Publish(Event{Type: EventOutcome, Data: o})
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
