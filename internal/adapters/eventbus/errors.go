package eventbus

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for the event broker.
var (
	// ErrChannelClosed is returned by handle operations once the broker terminated.
	ErrChannelClosed = errors.New("channel closed: event broker has terminated")

	// ErrSendRejected is returned when the caller gave up waiting for channel space.
	ErrSendRejected = errors.New("send rejected")

	// ErrCallbackFailure matches every *CallbackError.
	ErrCallbackFailure = errors.New("subscriber callback failed")

	// ErrConfigInvalid is returned for a malformed Config.
	ErrConfigInvalid = errors.New("invalid broker config")

	// ErrHandleClosed is returned when a handle is used after Close.
	ErrHandleClosed = errors.New("handle already closed")

	// ErrNilCallback is returned when subscribing without a callback.
	ErrNilCallback = errors.New("callback cannot be nil")
)

// CallbackError reports a subscriber callback that panicked.
type CallbackError struct {
	// SubscriberID identifies the failing subscriber.
	SubscriberID uuid.UUID

	// EventType is the type the subscriber was registered for.
	EventType any

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace captured at recovery.
	Stack string
}

// Error implements the error interface.
func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback of subscriber %s on %v panicked: %v", e.SubscriberID, e.EventType, e.Value)
}

// Is allows errors.Is to match CallbackError with ErrCallbackFailure.
func (e *CallbackError) Is(target error) bool {
	return target == ErrCallbackFailure
}
