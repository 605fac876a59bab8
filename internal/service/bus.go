package service

import "sync"

// Resources carried by events.
const (
	ResourceLayers    = "layers"
	ResourcePermalink = "permalink"
	ResourceCamera    = "camera"
)

// Actions carried by events.
const (
	ActionUpdated   = "updated"
	ActionActivated = "activated"
	ActionFailed    = "failed"
)

// Event represents a state change of the viewer.
type Event struct {
	Resource string `json:"resource"`        // e.g. "layers"
	Action   string `json:"action"`          // "updated", "activated", "failed"
	ID       string `json:"id,omitempty"`    // layer ID
	Error    string `json:"error,omitempty"` // set for "failed"
}

// EventBus is a simple fan-out pub/sub for change events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

// Subscribers returns the number of active subscribers.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
