package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler processes a published event. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(event *Event)

// subscription pairs a handler with the id its unsubscribe func removes.
type subscription struct {
	id      int
	handler Handler
}

// Bus is an in-process publish/subscribe event bus.
type Bus struct {
	log            zerolog.Logger
	mu             sync.RWMutex
	nextID         int
	subscribers    map[EventType][]subscription
	allSubscribers []subscription
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		log:         log.With().Str("component", "event_bus").Logger(),
		subscribers: make(map[EventType][]subscription),
	}
}

// Subscribe registers a handler for a single event type and returns an
// unsubscribe function. Transient subscribers (per-connection stream
// handlers) must call it; the bus holds the handler until they do.
func (b *Bus) Subscribe(eventType EventType, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		b.subscribers[eventType] = removeSubscription(b.subscribers[eventType], id)
		b.mu.Unlock()
	}
}

// SubscribeAll registers a handler for every event type and returns an
// unsubscribe function.
func (b *Bus) SubscribeAll(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.allSubscribers = append(b.allSubscribers, subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		b.allSubscribers = removeSubscription(b.allSubscribers, id)
		b.mu.Unlock()
	}
}

// SubscriberCount returns the number of registered handlers across all
// event types. Diagnostic only.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.allSubscribers)
	for _, subs := range b.subscribers {
		n += len(subs)
	}
	return n
}

// Publish delivers an event built from the given data to all matching
// subscribers. The event timestamp is set at publish time.
func (b *Bus) Publish(data EventData) {
	event := &Event{
		Type:      data.EventType(),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers[event.Type])+len(b.allSubscribers))
	for _, sub := range b.subscribers[event.Type] {
		handlers = append(handlers, sub.handler)
	}
	for _, sub := range b.allSubscribers {
		handlers = append(handlers, sub.handler)
	}
	b.mu.RUnlock()

	b.log.Debug().
		Str("event", string(event.Type)).
		Int("handlers", len(handlers)).
		Msg("Publishing event")

	for _, handler := range handlers {
		handler(event)
	}
}

func removeSubscription(subs []subscription, id int) []subscription {
	for i, sub := range subs {
		if sub.id == id {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}
