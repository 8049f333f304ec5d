package engine

import (
	"context"

	"github.com/flitsinc/go-assistant/internal/events"
)

// Pump bridges a pull-based run sequence into a bounded channel so async
// transports can service keep-alives while the run blocks on the completion
// service. A dedicated worker drives the sequence; the channel closes after
// the terminal event. Cancelling ctx abandons the run at its next event.
func Pump(ctx context.Context, seq func(yield func(events.Event) bool), buffer int) <-chan events.Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan events.Event, buffer)
	go func() {
		defer close(ch)
		seq(func(ev events.Event) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return ch
}
