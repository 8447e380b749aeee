package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()

	var first, second []any
	bus.Subscribe(TopicNotificationUpdate, func(p any) { first = append(first, p) })
	bus.Subscribe(TopicNotificationUpdate, func(p any) { second = append(second, p) })

	bus.Publish(TopicNotificationUpdate, "n1")

	assert.Equal(t, []any{"n1"}, first)
	assert.Equal(t, []any{"n1"}, second)
}

func TestBus_TopicsAreIndependent(t *testing.T) {
	bus := NewBus()

	var read int
	bus.Subscribe(TopicNotificationRead, func(any) { read++ })

	bus.Publish(TopicNotificationUpdate, nil)
	assert.Zero(t, read)

	bus.Publish(TopicNotificationRead, nil)
	assert.Equal(t, 1, read)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	var calls int
	unsub := bus.Subscribe(TopicSessionExpired, func(any) { calls++ })

	bus.Publish(TopicSessionExpired, nil)
	unsub()
	bus.Publish(TopicSessionExpired, nil)

	assert.Equal(t, 1, calls)
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() { bus.Publish("unknown", nil) })
}
