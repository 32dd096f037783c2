package service

import "sync"

// Event represents a change visible to the editor UI.
type Event struct {
	Resource string  // "session", "view" or "indicator"
	Action   string  // e.g. "ingested", "rejected", "redraw", "shown", "hidden"
	ID       string  // session ID
	Channel  Channel // input channel, for session events
	Revision uint64
	Message  string
}

// EventBus is a simple fan-out pub/sub for session events.
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
