package ports

import (
	"EventRelay/internal/core/domain"
	"context"
)

// EventPublisher submits classified events to the broker.
type EventPublisher interface {
	// Send enqueues an event, waiting while the broker is backed up.
	Send(ctx context.Context, event domain.Event) error
}

// EventSubscriber registers callbacks with the broker.
type EventSubscriber interface {
	// Subscribe delivers every event of eventType to callback, starting
	// with the events published before anyone listened.
	// The callback runs on the broker goroutine and must not block.
	Subscribe(ctx context.Context, eventType domain.EventType, callback func(domain.Event)) error
}

// MessageSink accepts raw inbound messages for relaying.
type MessageSink interface {
	// Send broadcasts msg and returns how many listeners received it.
	Send(msg domain.Message) (int, error)
}
