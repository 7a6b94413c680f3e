package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventHandler reacts to an account event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans account events out to subscribers.
type Dispatcher interface {
	// Publish runs every handler subscribed to event.Type. A failing or panicking
	// handler does not stop the others; their errors are joined.
	Publish(ctx context.Context, event Event) error
	// Subscribe registers handler for each of the given types.
	Subscribe(handler EventHandler, types ...EventType)
}

type syncDispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

// NewInMemoryDispatcher returns a dispatcher that runs handlers on the publishing goroutine.
func NewInMemoryDispatcher() Dispatcher {
	return &syncDispatcher{handlers: make(map[EventType][]EventHandler)}
}

func (d *syncDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	subscribed := d.handlers[event.Type]
	d.mu.RUnlock()

	var errs []error
	for _, handler := range subscribed {
		if err := invoke(ctx, handler, event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}

func (d *syncDispatcher) Subscribe(handler EventHandler, types ...EventType) {
	if handler == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range types {
		// copy-on-write; Publish iterates a snapshot
		next := make([]EventHandler, len(d.handlers[t]), len(d.handlers[t])+1)
		copy(next, d.handlers[t])
		d.handlers[t] = append(next, handler)
	}
}

func invoke(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(ctx, event)
}
