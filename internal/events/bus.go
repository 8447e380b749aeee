// Package events carries cross-component invalidation signals: one writer,
// many readers, all readers notified synchronously on publish. Components
// that hold independent caches (the feed coordinator, the chat thread, the
// daemon badge) subscribe instead of polling each other.
package events

import "sync"

// Topics published by the sync layer.
const (
	TopicNotificationUpdate = "notification.update" // feed or count changed
	TopicNotificationRead   = "notification.read"   // one or all marked read
	TopicSessionExpired     = "session.expired"
)

type Handler func(payload any)

type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[int]Handler
	nextID int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

// Subscribe registers a handler for topic. The returned function removes it.
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs[topic], id)
		b.mu.Unlock()
	}
}

// Publish invokes every handler for topic on the caller's goroutine before
// returning. Handlers must not publish to the same topic reentrantly.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}
