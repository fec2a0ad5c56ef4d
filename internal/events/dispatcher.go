package events

import (
	"context"
	"errors"
)

// Dispatcher delivers an event to every session subscribed to topic.
// Delivery is best effort; callers treat errors as non-fatal.
type Dispatcher interface {
	Publish(ctx context.Context, topic string, event Event) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, topic string, event Event) error

// Publish calls f.
func (f DispatcherFunc) Publish(ctx context.Context, topic string, event Event) error {
	return f(ctx, topic, event)
}

type multiDispatcher struct {
	targets []Dispatcher
}

// Multi publishes to every non-nil target and joins their errors.
func Multi(targets ...Dispatcher) Dispatcher {
	filtered := make([]Dispatcher, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			filtered = append(filtered, t)
		}
	}
	return &multiDispatcher{targets: filtered}
}

func (m *multiDispatcher) Publish(ctx context.Context, topic string, event Event) error {
	var errs []error
	for _, target := range m.targets {
		if err := target.Publish(ctx, topic, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
