// Package notify fans engine notifications out to any number of listeners.
package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultBuffer = 64

// Event wraps a payload with its publication order and time.
type Event[T any] struct {
	Seq     uint64
	Payload T
	At      time.Time
}

// Broker delivers every published payload to all current subscribers.
// Publishing never blocks: a subscriber whose buffer is full misses the
// event and the drop is counted.
type Broker[T any] struct {
	mu      sync.RWMutex
	subs    map[chan Event[T]]struct{}
	done    chan struct{}
	buffer  int
	seq     atomic.Uint64
	dropped atomic.Uint64
}

// NewBroker returns a broker whose subscriptions buffer size events.
// Non-positive sizes use the default.
func NewBroker[T any](size int) *Broker[T] {
	if size <= 0 {
		size = defaultBuffer
	}
	return &Broker[T]{
		subs:   make(map[chan Event[T]]struct{}),
		done:   make(chan struct{}),
		buffer: size,
	}
}

// Subscribe returns a channel that receives events until ctx is done or the
// broker is closed, after which it is closed.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		ch := make(chan Event[T])
		close(ch)
		return ch
	default:
	}

	sub := make(chan Event[T], b.buffer)
	b.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub)
		}
	}()

	return sub
}

// Publish sends payload to every subscriber.
func (b *Broker[T]) Publish(payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return
	default:
	}

	ev := Event[T]{Seq: b.seq.Add(1), Payload: payload, At: time.Now()}
	for sub := range b.subs {
		select {
		case sub <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Close ends every subscription. Later publishes are ignored.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return
	default:
	}

	close(b.done)
	for sub := range b.subs {
		close(sub)
	}
	b.subs = nil
}

// SubscriberCount returns the number of live subscriptions.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped on full buffers.
func (b *Broker[T]) Dropped() uint64 { return b.dropped.Load() }
