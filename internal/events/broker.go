// Package events provides the fire-and-forget publish/subscribe fan-out used
// to announce status store changes to UI collaborators.
//
// Subscribers receive events on buffered channels. Sends never block: a
// subscriber whose buffer is full misses the event rather than stalling the
// store.
package events

import "sync"

// SubscriberBuffer is the channel buffer size handed to each subscriber.
const SubscriberBuffer = 100

// Broker fans events of type T out to subscribers.
//
// The zero value is not usable; create one with [NewBroker]. All methods are
// safe for concurrent use.
type Broker[T any] struct {
	mu          sync.RWMutex
	subscribers map[chan T]struct{}
	closed      bool
}

// NewBroker creates an empty [Broker].
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subscribers: make(map[chan T]struct{}),
	}
}

// Publish sends ev to every subscriber without blocking.
func (b *Broker[T]) Publish(ev T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			// subscriber is slow, drop the event
		}
	}
}

// Subscribe registers a new subscriber. The caller must call
// [Broker.Unsubscribe] when done. Subscribing to a closed broker returns an
// already closed channel.
func (b *Broker[T]) Subscribe() <-chan T {
	ch := make(chan T, SubscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// more than once or with an unknown channel.
func (b *Broker[T]) Unsubscribe(ch <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subCh := range b.subscribers {
		if subCh == ch {
			delete(b.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// Len returns the number of active subscribers.
func (b *Broker[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes every subscriber channel. Later publishes are dropped.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subscribers {
		delete(b.subscribers, ch)
		close(ch)
	}
}
