// Package broadcast provides a minimal multicast signal used by the
// client services to tell independent views that something changed.
// Values are delivered to subscribers present at publish time; late
// subscribers receive no replay.
package broadcast

import "sync"

// Broadcaster fans a value out to every current subscriber. Delivery
// is best-effort: a subscriber that has fallen behind its buffer
// misses the value rather than blocking the publisher.
type Broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
}

// New returns an empty Broadcaster.
func New[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[chan T]struct{})}
}

// Subscribe registers a new subscriber and returns its channel along
// with a cancel function that must be called to release it.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 16)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers v to every current subscriber without blocking.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
}
