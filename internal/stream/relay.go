package stream

import (
	"context"
	"errors"
	"time"

	"tiervc/pkg/contracts/events"
)

// Sink delivers one event downstream, typically onto the wire
type Sink func(events.Event) error

// Relay pops events from q and hands them to sink until the queue is closed
// and drained. When the idle window elapses it delivers an Error event and
// returns ErrIdleTimeout so the caller can cancel the producers.
func Relay(ctx context.Context, q *Queue, idle time.Duration, sink Sink) error {
	for {
		e, err := q.Pop(ctx, idle)
		switch {
		case err == nil:
			if err := sink(e); err != nil {
				return err
			}
		case errors.Is(err, ErrClosed):
			return nil
		case errors.Is(err, ErrIdleTimeout):
			if sinkErr := sink(events.Error{Message: "Timeout waiting for event."}); sinkErr != nil {
				return sinkErr
			}
			return ErrIdleTimeout
		default:
			return err
		}
	}
}
