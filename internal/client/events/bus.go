// Package events is the in-process broadcast channel UI components
// listen on. Publishing is fire-and-forget: slow subscribers drop
// events rather than block the sync path.
package events

import "sync"

// Topic identifies a broadcast channel.
type Topic string

const (
	// TopicSyncComplete fires once per reconciliation outcome.
	TopicSyncComplete Topic = "sync-complete"
	// TopicLoggedOut fires when the current user signs out.
	TopicLoggedOut Topic = "logged-out"
)

// Event is a broadcast payload.
type Event struct {
	Topic  Topic
	UserID string
	Detail string
}

// Bus fans events out to subscribers per topic.
type Bus struct {
	mu   sync.Mutex
	subs map[Topic][]chan Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]chan Event)}
}

// Subscribe returns a channel receiving events published to topic and a
// function to unsubscribe. The channel is buffered; events published
// while the buffer is full are dropped for that subscriber.
func (b *Bus) Subscribe(topic Topic) (<-chan Event, func()) {
	ch := make(chan Event, 8)

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subs[topic]
		for i, sub := range subs {
			if sub == ch {
				b.subs[topic] = append(subs[:i], subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, unsubscribe
}

// Publish delivers evt to every subscriber of its topic without
// blocking.
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	subs := make([]chan Event, len(b.subs[evt.Topic]))
	copy(subs, b.subs[evt.Topic])
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
