package httpapi

import (
	"sync"

	"github.com/google/uuid"
)

const subscriberBuffer = 16

// Hub fans rebuild notifications out to websocket subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]chan struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]chan struct{})}
}

// Add registers a subscriber. The channel is closed when the hub closes.
func (h *Hub) Add() (uuid.UUID, <-chan struct{}) {
	id := uuid.New()
	ch := make(chan struct{}, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subs[id] = ch
	return id, ch
}

func (h *Hub) Remove(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Broadcast queues one notification per subscriber and returns how many
// subscribers were too far behind to receive it.
func (h *Hub) Broadcast() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	dropped := 0
	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
			dropped++
		}
	}
	return dropped
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
