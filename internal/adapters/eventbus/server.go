package eventbus

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// subscribeRequest asks the broker to register callback for eventType.
type subscribeRequest[T comparable, E any] struct {
	eventType T
	callback  func(E)
}

// inbox holds the receive side of both request channels.
type inbox[T comparable, E any] struct {
	events     *sendSide[E]
	subscribes *sendSide[subscribeRequest[T, E]]
}

// Server is the broker state machine. It exclusively owns the backlog and
// the subscriber registry; only its Run goroutine touches them.
type Server[T comparable, E Event[T]] struct {
	cfg         Config
	backlog     *backlog[T, E]
	subscribers *subscribers[T, E]
	log         zerolog.Logger
}

// NewServer validates cfg and creates an idle broker.
func NewServer[T comparable, E Event[T]](cfg Config, baseLogger *zerolog.Logger) (*Server[T, E], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Server[T, E]{
		cfg:         cfg,
		backlog:     newBacklog[T, E](BacklogCapacity, cfg.backlogPresize()),
		subscribers: newSubscribers[T, E](cfg.SubscriberCount),
		log:         baseLogger.With().Str("component", "event_broker").Logger(),
	}, nil
}

// Run services one request per iteration until a kill event arrives,
// both request sides are dropped and drained, or ctx is cancelled.
func (s *Server[T, E]) Run(ctx context.Context, in *inbox[T, E]) {
	s.log.Info().Msg("Event broker started")

	eventsGone := in.events.released()
	subscribesGone := in.subscribes.released()
	eventsOpen, subscribesOpen := true, true

	for {
		// Cancellation wins over pending requests: Stop does not drain.
		if ctx.Err() != nil {
			s.log.Info().Msg("Event broker cancelled")
			return
		}
		if !eventsOpen && !subscribesOpen && in.events.pending() == 0 && in.subscribes.pending() == 0 {
			s.log.Info().Msg("All handles dropped, stopping event broker")
			return
		}

		select {
		case <-ctx.Done():
			s.log.Info().Msg("Event broker cancelled")
			return
		case req := <-in.subscribes.ch:
			s.subscribe(req.eventType, req.callback)
		case event := <-in.events.ch:
			if event.IsKill() {
				s.log.Info().Msg("Killing event broker")
				return
			}
			s.publish(event)
		case <-eventsGone:
			eventsOpen = false
			eventsGone = nil
		case <-subscribesGone:
			subscribesOpen = false
			subscribesGone = nil
		}
	}
}

// publish dispatches event to its subscribers, or queues it in the
// backlog when its type has none yet. Kill events never reach here.
func (s *Server[T, E]) publish(event E) {
	t := event.Type()
	if s.subscribers.count(t) == 0 {
		s.backlog.push(t, event)
		return
	}
	if errs := s.subscribers.notify(t, event); len(errs) > 0 {
		s.log.Warn().
			Str("event_type", fmt.Sprint(t)).
			Errs("errors", errs).
			Msg("Could not notify subscribers")
	}
}

// subscribe registers callback and replays the type's backlog to the
// subscriber list within the same broker step.
func (s *Server[T, E]) subscribe(t T, callback func(E)) {
	sub := newSubscriber(callback)
	s.subscribers.register(t, sub)

	replayed := s.backlog.drain(t)
	for _, event := range replayed {
		if errs := s.subscribers.notify(t, event); len(errs) > 0 {
			s.log.Warn().
				Str("event_type", fmt.Sprint(t)).
				Errs("errors", errs).
				Msg("Could not notify subscriber of backlogged event")
		}
	}

	s.log.Debug().
		Str("event_type", fmt.Sprint(t)).
		Str("subscriber_id", sub.ID().String()).
		Int("replayed", len(replayed)).
		Msg("New subscriber registered")
}
