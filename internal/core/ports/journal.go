package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JournalEntry is one delivered event as recorded in the audit journal.
type JournalEntry struct {
	MessageID  uuid.UUID
	EventType  uint16
	Payload    []byte // sealed body
	ReceivedAt time.Time
}

// EventJournal is the append-only audit log of delivered events.
// It is not used to restore broker state.
type EventJournal interface {
	Append(ctx context.Context, entry JournalEntry) error
	ListByType(ctx context.Context, eventType uint16, limit int) ([]JournalEntry, error)
}
