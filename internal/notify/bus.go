package notify

import (
	"context"
	"sync"
)

// Bus is the process-wide broadcast capability the delivery and session
// layers share: publish a payload to every subscriber of a named group,
// at-most-once, no queuing or replay.
type Bus interface {
	Publish(group string, payload []byte)
	Subscribe(ctx context.Context, group string) (<-chan []byte, func())
}

// GroupBus is the in-process Bus implementation. Publishing to a group
// with no subscribers is a no-op; a subscriber that cannot keep up has
// messages dropped rather than blocking the publisher.
type GroupBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*groupSubscriber
	nextID      int64
	bufferSize  int
}

type groupSubscriber struct {
	id     int64
	stream chan []byte
}

// NewGroupBus constructs an empty bus.
func NewGroupBus() *GroupBus {
	return &GroupBus{
		subscribers: make(map[string]map[int64]*groupSubscriber),
		bufferSize:  16,
	}
}

// Subscribe joins the group and returns a receive channel plus a cancel
// function. Cancel is idempotent and also runs when the context ends, so
// concurrent connects and disconnects for the same group are safe.
func (b *GroupBus) Subscribe(ctx context.Context, group string) (<-chan []byte, func()) {
	if group == "" {
		ch := make(chan []byte)
		close(ch)
		return ch, func() {}
	}
	subscriber := &groupSubscriber{
		id:     b.nextSequence(),
		stream: make(chan []byte, b.bufferSize),
	}
	b.register(group, subscriber)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.unregister(group, subscriber.id)
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return subscriber.stream, cancel
}

// Publish delivers the payload to every current subscriber of the group.
func (b *GroupBus) Publish(group string, payload []byte) {
	if group == "" || len(payload) == 0 {
		return
	}
	b.mu.RLock()
	subscribers := b.subscribers[group]
	if len(subscribers) == 0 {
		b.mu.RUnlock()
		return
	}
	copies := make([]*groupSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	b.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- payload:
		default:
		}
	}
}

func (b *GroupBus) nextSequence() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return b.nextID
}

func (b *GroupBus) register(group string, subscriber *groupSubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[group]; !ok {
		b.subscribers[group] = make(map[int64]*groupSubscriber)
	}
	b.subscribers[group][subscriber.id] = subscriber
}

func (b *GroupBus) unregister(group string, subscriberID int64) {
	b.mu.Lock()
	subscribers := b.subscribers[group]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(b.subscribers, group)
		}
	}
	b.mu.Unlock()
}
