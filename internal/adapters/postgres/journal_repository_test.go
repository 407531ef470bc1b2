package postgres

import (
	"EventRelay/internal/core/ports"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func cleanupJournalEntry(t *testing.T, id uuid.UUID) {
	_, err := testDB.pool.Exec(context.Background(), "DELETE FROM event_journal WHERE message_id = $1", id)
	if err != nil {
		t.Logf("Warning: Failed to cleanup journal entry %s: %v", id, err)
	}
}

func TestJournalRepository_Append_ListByType_Roundtrip(t *testing.T) {
	db := requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewJournalRepository(db, &nopLogger)
	ctx := context.Background()

	// A type code no other test writes, so the listing is ours alone.
	const eventType = uint16(0x7ff1)
	older := ports.JournalEntry{
		MessageID:  uuid.New(),
		EventType:  eventType,
		Payload:    []byte{0x01, 0x02, 0x03},
		ReceivedAt: time.Now().Add(-time.Minute).UTC().Truncate(time.Microsecond),
	}
	newer := ports.JournalEntry{
		MessageID:  uuid.New(),
		EventType:  eventType,
		Payload:    []byte{0x04, 0x05},
		ReceivedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	for _, e := range []ports.JournalEntry{older, newer} {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("Failed to append entry: %v", err)
		}
		defer cleanupJournalEntry(t, e.MessageID)
	}

	// Appending the same message again must not duplicate it
	if err := repo.Append(ctx, newer); err != nil {
		t.Fatalf("Re-append failed: %v", err)
	}

	entries, err := repo.ListByType(ctx, eventType, 10)
	if err != nil {
		t.Fatalf("Failed to list entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	if entries[0].MessageID != newer.MessageID || entries[1].MessageID != older.MessageID {
		t.Errorf("Entries not newest first: got %v, %v", entries[0].MessageID, entries[1].MessageID)
	}
	if !bytes.Equal(entries[1].Payload, older.Payload) {
		t.Errorf("Payload mismatch: got %x, want %x", entries[1].Payload, older.Payload)
	}
	if entries[1].EventType != eventType {
		t.Errorf("Type mismatch: got %d, want %d", entries[1].EventType, eventType)
	}
	if !entries[1].ReceivedAt.Equal(older.ReceivedAt) {
		t.Errorf("ReceivedAt mismatch: got %v, want %v", entries[1].ReceivedAt, older.ReceivedAt)
	}

	limited, err := repo.ListByType(ctx, eventType, 1)
	if err != nil {
		t.Fatalf("Failed to list with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected 1 entry with limit 1, got %d", len(limited))
	}
}
