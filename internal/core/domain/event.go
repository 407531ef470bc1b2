package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownType is returned when a type code is not one of the known EventTypes.
var ErrUnknownType = errors.New("not a valid event type")

// EventType is the discriminator used to route events to their subscribers.
type EventType uint16

// Wire codes of every EventType. These never change.
const (
	EventTypeA    EventType = 0x0
	EventTypeB    EventType = 0x1
	EventTypeKill EventType = 0x2
)

// EventTypes lists every known type, in code order.
func EventTypes() []EventType {
	return []EventType{EventTypeA, EventTypeB, EventTypeKill}
}

// ParseEventType converts a wire code into an EventType.
func ParseEventType(code uint16) (EventType, error) {
	switch t := EventType(code); t {
	case EventTypeA, EventTypeB, EventTypeKill:
		return t, nil
	default:
		return 0, fmt.Errorf("%w: 0x%x", ErrUnknownType, code)
	}
}

// Code returns the wire code of the type.
func (t EventType) Code() uint16 {
	return uint16(t)
}

func (t EventType) String() string {
	switch t {
	case EventTypeA:
		return "EventTypeA"
	case EventTypeB:
		return "EventTypeB"
	case EventTypeKill:
		return "EventTypeKill"
	default:
		return fmt.Sprintf("EventType(0x%x)", uint16(t))
	}
}

// Event is a classified message flowing through the broker.
// The Kill variant carries no payload; it only stops the broker.
type Event struct {
	kind    EventType
	message Message
}

// NewEvent wraps a message with an explicit type.
// Use KillEvent for the control signal.
func NewEvent(kind EventType, msg Message) Event {
	return Event{kind: kind, message: msg}
}

// KillEvent returns the event that terminates a broker loop.
func KillEvent() Event {
	return Event{kind: EventTypeKill}
}

// Type returns the routing type of the event.
func (e Event) Type() EventType {
	return e.kind
}

// IsKill reports whether the event is the terminal control signal.
func (e Event) IsKill() bool {
	return e.kind == EventTypeKill
}

// Message returns the payload. It is the zero Message for a kill event.
func (e Event) Message() Message {
	return e.message
}

func (e Event) String() string {
	if e.IsKill() {
		return "Kill"
	}
	return fmt.Sprintf("%s(%s)", e.kind, e.message.Body)
}
