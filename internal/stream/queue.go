// Package stream decouples event producers from the single consumer that
// relays them to a client.
package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"tiervc/pkg/contracts/events"
)

var (
	// ErrIdleTimeout is returned by Pop when no event arrived within the idle window
	ErrIdleTimeout = errors.New("no event received within idle timeout")

	// ErrClosed is returned by Pop once the queue is closed and drained
	ErrClosed = errors.New("event queue closed")
)

// Emitter receives events from a producer. Implementations must not block.
type Emitter func(events.Event)

// Queue is an unbounded FIFO with many producers and one consumer.
// Push never blocks; Pop blocks until an event arrives, the queue is
// closed, the idle window elapses or the context ends.
type Queue struct {
	mu     sync.Mutex
	items  []events.Event
	closed bool
	notify chan struct{}
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Push appends e. It reports false if the queue is already closed.
func (q *Queue) Push(e events.Event) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, e)
	q.mu.Unlock()

	q.wake()
	return true
}

// Emit is Push as an Emitter
func (q *Queue) Emit(e events.Event) {
	q.Push(e)
}

// Close stops accepting events. Events already queued can still be popped.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// Len returns the number of queued events
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pop removes the oldest event. A non-positive idle disables the idle timeout.
func (q *Queue) Pop(ctx context.Context, idle time.Duration) (events.Event, error) {
	var timeout <-chan time.Time
	if idle > 0 {
		timer := time.NewTimer(idle)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			e := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return e, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, ErrClosed
		}

		select {
		case <-q.notify:
		case <-timeout:
			return nil, ErrIdleTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Tee fans one event out to several emitters in order
func Tee(emitters ...Emitter) Emitter {
	return func(e events.Event) {
		for _, emit := range emitters {
			if emit != nil {
				emit(e)
			}
		}
	}
}
