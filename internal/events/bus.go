package events

import "sync"

// Handler receives events synchronously. Handlers must not block; delivery
// happens inline on the publishing tick.
type Handler func(Event)

// Bus owns an explicit subscriber list. There is no queueing: Publish invokes
// every live handler before returning, preserving same-tick delivery.
type Bus struct {
	mu       sync.Mutex
	nextID   uint64
	handlers []subscription
}

type subscription struct {
	id      uint64
	handler Handler
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler and returns a cancel func that removes it.
func (b *Bus) Subscribe(handler Handler) func() {
	if b == nil || handler == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, subscription{id: id, handler: handler})
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.handlers {
			if sub.id == id {
				b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the event to every subscriber in registration order.
func (b *Bus) Publish(event Event) {
	if b == nil || event == nil {
		return
	}
	b.mu.Lock()
	snapshot := make([]subscription, len(b.handlers))
	copy(snapshot, b.handlers)
	b.mu.Unlock()
	for _, sub := range snapshot {
		sub.handler(event)
	}
}
