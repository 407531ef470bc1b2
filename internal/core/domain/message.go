package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPrefix is the body prefix that marks a message as EventTypeA.
const DefaultPrefix = "test"

// Message is a raw inbound message handled by the relay.
type Message struct {
	ID         uuid.UUID
	Body       string
	ReceivedAt time.Time
}

// NewMessage stamps a body with a fresh ID and the current time.
func NewMessage(body string) Message {
	return Message{
		ID:         uuid.New(),
		Body:       body,
		ReceivedAt: time.Now().UTC(),
	}
}

// Classify turns a message into an event: bodies starting with prefix
// become EventTypeA, everything else EventTypeB.
// Classification never produces a kill event.
func Classify(prefix string, msg Message) Event {
	if strings.HasPrefix(msg.Body, prefix) {
		return NewEvent(EventTypeA, msg)
	}
	return NewEvent(EventTypeB, msg)
}
