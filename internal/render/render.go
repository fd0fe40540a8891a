package render

import "ag-tools/internal/events"

// Renderer emits events to an output target.
type Renderer interface {
	Emit(events.Event)
	Close() error
}

// Fanout returns an emitter that forwards each event to every non-nil target
// in order.
func Fanout(targets ...events.Emitter) events.Emitter {
	return func(event events.Event) {
		for _, target := range targets {
			if target != nil {
				target(event)
			}
		}
	}
}
