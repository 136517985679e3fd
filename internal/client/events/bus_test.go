package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()

	ch, unsubscribe := bus.Subscribe(TopicSyncComplete)
	defer unsubscribe()

	bus.Publish(Event{Topic: TopicSyncComplete, UserID: "u1"})

	select {
	case evt := <-ch:
		assert.Equal(t, "u1", evt.UserID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	bus := NewBus()

	ch, unsubscribe := bus.Subscribe(TopicLoggedOut)
	defer unsubscribe()

	bus.Publish(Event{Topic: TopicSyncComplete, UserID: "u1"})

	select {
	case <-ch:
		t.Fatal("event delivered to wrong topic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishDoesNotBlockOnFullBuffer(t *testing.T) {
	bus := NewBus()

	_, unsubscribe := bus.Subscribe(TopicSyncComplete)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(Event{Topic: TopicSyncComplete})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	ch, unsubscribe := bus.Subscribe(TopicSyncComplete)
	unsubscribe()

	_, open := <-ch
	require.False(t, open, "channel must be closed after unsubscribe")
}
