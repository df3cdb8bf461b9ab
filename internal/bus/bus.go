package bus

import (
	"sync"

	"github.com/matheus3301/chatlog/internal/broker"
)

// Bus is an in-process publish/subscribe message bus with MQTT-style topic filters.
// Delivery is synchronous on the publisher's goroutine, so subscribers observe
// messages in publish order and must not block.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	filter string
	fn     broker.MessageFunc
}

// New creates a new bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
	}
}

// Publish delivers payload to every subscriber whose filter matches topic.
// It returns the number of subscribers reached.
func (b *Bus) Publish(topic string, payload []byte) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, sub := range b.subs {
		if broker.Match(sub.filter, topic) {
			sub.fn(topic, payload)
			n++
		}
	}
	return n
}

// Subscribe registers fn for topics matching filter. Returns an unsubscribe function.
func (b *Bus) Subscribe(filter string, fn broker.MessageFunc) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscription{filter: filter, fn: fn}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
