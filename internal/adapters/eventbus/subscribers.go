package eventbus

import (
	"runtime/debug"

	"github.com/google/uuid"
)

// Subscriber owns one callback registered against a single type.
type Subscriber[E any] struct {
	id       uuid.UUID
	callback func(E)
}

func newSubscriber[E any](callback func(E)) *Subscriber[E] {
	return &Subscriber[E]{id: uuid.New(), callback: callback}
}

// ID returns the identifier used in logs and CallbackErrors.
func (s *Subscriber[E]) ID() uuid.UUID {
	return s.id
}

// notify invokes the callback, turning a panic into a *CallbackError.
func (s *Subscriber[E]) notify(eventType any, event E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CallbackError{
				SubscriberID: s.id,
				EventType:    eventType,
				Value:        r,
				Stack:        string(debug.Stack()),
			}
		}
	}()
	s.callback(event)
	return nil
}

// subscribers is the per-type registry. Owned by the broker goroutine.
type subscribers[T comparable, E any] struct {
	byType   map[T][]*Subscriber[E]
	subCount int
}

func newSubscribers[T comparable, E any](subCount int) *subscribers[T, E] {
	return &subscribers[T, E]{
		byType:   make(map[T][]*Subscriber[E], 4),
		subCount: subCount,
	}
}

func (s *subscribers[T, E]) register(t T, sub *Subscriber[E]) {
	list, ok := s.byType[t]
	if !ok {
		list = make([]*Subscriber[E], 0, s.subCount)
	}
	s.byType[t] = append(list, sub)
}

func (s *subscribers[T, E]) count(t T) int {
	return len(s.byType[t])
}

// notify delivers event to every subscriber of t in registration order.
// Every subscriber is attempted; the returned errors keep that order.
func (s *subscribers[T, E]) notify(t T, event E) []error {
	var errs []error
	for _, sub := range s.byType[t] {
		if err := sub.notify(t, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
