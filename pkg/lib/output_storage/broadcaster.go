package output_storage

import (
	"errors"
	"sync"
)

var errBroadcasterStopped = errors.New("broadcaster is stopped")

// Broadcaster fans a stream of values out to subscribers. A slow subscriber
// loses its oldest pending value rather than blocking the others, which is
// enough for wake-up notifications where only the latest value matters.
type Broadcaster[T any] struct {
	in          chan T
	mu          sync.Mutex
	subscribers map[chan T]struct{}
	stopped     bool
}

// RunNewBroadcaster creates a Broadcaster and starts its dispatch goroutine.
func RunNewBroadcaster[T any]() *Broadcaster[T] {
	b := &Broadcaster[T]{
		in:          make(chan T, 1),
		subscribers: make(map[chan T]struct{}),
	}
	go b.run()
	return b
}

func (b *Broadcaster[T]) run() {
	for msg := range b.in {
		b.mu.Lock()
		subs := make([]chan T, 0, len(b.subscribers))
		for s := range b.subscribers {
			subs = append(subs, s)
		}
		b.mu.Unlock()

		for _, s := range subs {
			offerLatest(s, msg)
		}
	}

	b.mu.Lock()
	for s := range b.subscribers {
		close(s)
	}
	b.stopped = true
	b.mu.Unlock()
	logger.Debug("broadcaster stopped")
}

// offerLatest sends msg without blocking, evicting the oldest queued value if ch is full.
func offerLatest[T any](ch chan T, msg T) {
	select {
	case ch <- msg:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- msg:
	default:
	}
}

// Stop closes every subscriber channel once pending values are dispatched.
func (b *Broadcaster[T]) Stop() {
	close(b.in)
}

// Subscribe registers a new subscriber with a one-slot buffer.
func (b *Broadcaster[T]) Subscribe() (chan T, error) {
	ch := make(chan T, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return nil, errBroadcasterStopped
	}
	b.subscribers[ch] = struct{}{}
	return ch, nil
}

// Unsubscribe stops deliveries to ch. The channel is left open: the dispatch
// goroutine may still hold it from the previous round.
func (b *Broadcaster[T]) Unsubscribe(ch chan T) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	b.mu.Unlock()
}

// Publish queues msg for delivery, replacing an undelivered previous value.
func (b *Broadcaster[T]) Publish(msg T) {
	offerLatest(b.in, msg)
}
