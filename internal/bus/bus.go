package bus

import (
	"strings"
	"sync"
)

// Handler consumes one published event.
type Handler func(Event)

type subscription struct {
	id      uint64
	topic   string
	handler Handler
}

// Bus is a topic-keyed publish/subscribe fan-out. A topic ending in '*'
// subscribes to every topic sharing the prefix, e.g.
// "data.book.snapshots.*". Publishing is synchronous: handlers run on
// the publisher's goroutine, which in this engine is the data engine
// loop.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	exact  map[string][]subscription
	prefix []subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{exact: make(map[string][]subscription)}
}

// Subscribe registers the handler for the topic and returns a
// subscription ID for Unsubscribe.
func (b *Bus) Subscribe(topic string, handler Handler) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := subscription{id: b.nextID, topic: topic, handler: handler}

	if strings.HasSuffix(topic, "*") {
		sub.topic = strings.TrimSuffix(topic, "*")
		b.prefix = append(b.prefix, sub)
		return sub.id
	}
	b.exact[topic] = append(b.exact[topic], sub)
	return sub.id
}

// Unsubscribe removes the subscription; unknown IDs are a no-op.
func (b *Bus) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.exact {
		for i, sub := range subs {
			if sub.id == id {
				b.exact[topic] = append(subs[:i], subs[i+1:]...)
				if len(b.exact[topic]) == 0 {
					delete(b.exact, topic)
				}
				return
			}
		}
	}
	for i, sub := range b.prefix {
		if sub.id == id {
			b.prefix = append(b.prefix[:i], b.prefix[i+1:]...)
			return
		}
	}
}

// Publish delivers the event to every matching subscriber.
func (b *Bus) Publish(topic string, e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, 4)
	for _, sub := range b.exact[topic] {
		handlers = append(handlers, sub.handler)
	}
	for _, sub := range b.prefix {
		if strings.HasPrefix(topic, sub.topic) {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(e)
	}
}

// SubscriberCount returns how many subscriptions match the topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.exact[topic])
	for _, sub := range b.prefix {
		if strings.HasPrefix(topic, sub.topic) {
			n++
		}
	}
	return n
}
