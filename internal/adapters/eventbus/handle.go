package eventbus

import (
	"EventRelay/internal/shared/runtime"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// sendSide is one bounded request channel shared by every clone of a handle.
// The channel itself is never closed; dropping the last clone closes gone.
type sendSide[M any] struct {
	ch       chan M
	done     <-chan struct{}
	refs     atomic.Int64
	gone     chan struct{}
	goneOnce sync.Once
}

func newSendSide[M any](size int, done <-chan struct{}) *sendSide[M] {
	s := &sendSide[M]{
		ch:   make(chan M, size),
		done: done,
		gone: make(chan struct{}),
	}
	s.refs.Store(1)
	return s
}

// send blocks while the channel is full.
func (s *sendSide[M]) send(ctx context.Context, m M) error {
	select {
	case <-s.done:
		return ErrChannelClosed
	default:
	}

	select {
	case s.ch <- m:
		return nil
	case <-s.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrSendRejected, ctx.Err())
	}
}

func (s *sendSide[M]) acquire() {
	s.refs.Add(1)
}

func (s *sendSide[M]) release() {
	if s.refs.Add(-1) == 0 {
		s.goneOnce.Do(func() { close(s.gone) })
	}
}

func (s *sendSide[M]) released() <-chan struct{} {
	return s.gone
}

func (s *sendSide[M]) pending() int {
	return len(s.ch)
}

// EventHandle submits events to a broker. Clones share the channel;
// every clone must be closed for the broker to see the side as dropped.
type EventHandle[E any] struct {
	side   *sendSide[E]
	closed atomic.Bool
}

// Send enqueues event, waiting while the broker is backed up.
func (h *EventHandle[E]) Send(ctx context.Context, event E) error {
	if h.closed.Load() {
		return ErrHandleClosed
	}
	return h.side.send(ctx, event)
}

// Clone returns an independent handle to the same broker.
func (h *EventHandle[E]) Clone() (*EventHandle[E], error) {
	if h.closed.Load() {
		return nil, ErrHandleClosed
	}
	h.side.acquire()
	return &EventHandle[E]{side: h.side}, nil
}

// Close drops this clone. Closing twice is a no-op.
func (h *EventHandle[E]) Close() {
	if h.closed.CompareAndSwap(false, true) {
		h.side.release()
	}
}

// SubscribeHandle registers callbacks with a broker. Same cloning rules
// as EventHandle.
type SubscribeHandle[T comparable, E any] struct {
	side   *sendSide[subscribeRequest[T, E]]
	closed atomic.Bool
}

// Subscribe asks the broker to deliver every event of eventType to
// callback, starting with whatever is backlogged for it.
func (h *SubscribeHandle[T, E]) Subscribe(ctx context.Context, eventType T, callback func(E)) error {
	if callback == nil {
		return ErrNilCallback
	}
	if h.closed.Load() {
		return ErrHandleClosed
	}
	return h.side.send(ctx, subscribeRequest[T, E]{eventType: eventType, callback: callback})
}

// Clone returns an independent handle to the same broker.
func (h *SubscribeHandle[T, E]) Clone() (*SubscribeHandle[T, E], error) {
	if h.closed.Load() {
		return nil, ErrHandleClosed
	}
	h.side.acquire()
	return &SubscribeHandle[T, E]{side: h.side}, nil
}

// Close drops this clone. Closing twice is a no-op.
func (h *SubscribeHandle[T, E]) Close() {
	if h.closed.CompareAndSwap(false, true) {
		h.side.release()
	}
}

// ServerHandle bundles both handles of a running broker with its task.
type ServerHandle[T comparable, E Event[T]] struct {
	events     *EventHandle[E]
	subscribes *SubscribeHandle[T, E]
	task       *runtime.Task
	done       chan struct{}
}

// NewServerHandle spawns server on rt and returns its handles.
func NewServerHandle[T comparable, E Event[T]](server *Server[T, E], rt *runtime.Runtime) (*ServerHandle[T, E], error) {
	done := make(chan struct{})
	in := &inbox[T, E]{
		events:     newSendSide[E](requestBuffer, done),
		subscribes: newSendSide[subscribeRequest[T, E]](requestBuffer, done),
	}

	task, err := rt.Spawn("event_broker", func(ctx context.Context) {
		defer close(done)
		server.Run(ctx, in)
	})
	if err != nil {
		return nil, err
	}

	return &ServerHandle[T, E]{
		events:     &EventHandle[E]{side: in.events},
		subscribes: &SubscribeHandle[T, E]{side: in.subscribes},
		task:       task,
		done:       done,
	}, nil
}

// Send publishes through the bundled event handle.
func (h *ServerHandle[T, E]) Send(ctx context.Context, event E) error {
	return h.events.Send(ctx, event)
}

// Subscribe registers through the bundled subscribe handle.
func (h *ServerHandle[T, E]) Subscribe(ctx context.Context, eventType T, callback func(E)) error {
	return h.subscribes.Subscribe(ctx, eventType, callback)
}

// Split hands out the parts. The ServerHandle should not be used afterwards.
func (h *ServerHandle[T, E]) Split() (*EventHandle[E], *SubscribeHandle[T, E], *runtime.Task) {
	return h.events, h.subscribes, h.task
}

// Stop aborts the broker immediately. Queued requests are discarded;
// send a kill event instead for a cooperative shutdown.
func (h *ServerHandle[T, E]) Stop() {
	h.task.Abort()
}

// Done is closed once the broker loop has exited.
func (h *ServerHandle[T, E]) Done() <-chan struct{} {
	return h.done
}
