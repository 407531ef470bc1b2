package postgres

import (
	"EventRelay/internal/core/ports"
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type journalRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.EventJournal = (*journalRepository)(nil) // Ensure compliance

// NewJournalRepository creates the postgres-backed event journal.
func NewJournalRepository(db *DB, baseLogger *zerolog.Logger) ports.EventJournal {
	return &journalRepository{
		db:  db,
		log: baseLogger.With().Str("component", "journal_repo").Logger(),
	}
}

// Append records entry. Recording the same message twice is a no-op.
func (r *journalRepository) Append(ctx context.Context, entry ports.JournalEntry) error {
	query := `
		INSERT INTO event_journal (message_id, event_type, payload, received_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (message_id) DO NOTHING
	`
	_, err := r.db.pool.Exec(ctx, query,
		entry.MessageID,
		int16(entry.EventType),
		entry.Payload,
		entry.ReceivedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("message_id", entry.MessageID.String()).Msg("Failed to append journal entry")
	}
	return err
}

// ListByType returns up to limit entries of eventType, newest first.
func (r *journalRepository) ListByType(ctx context.Context, eventType uint16, limit int) ([]ports.JournalEntry, error) {
	query := `
		SELECT message_id, event_type, payload, received_at
		FROM event_journal
		WHERE event_type = $1
		ORDER BY id DESC
		LIMIT $2
	`
	rows, err := r.db.pool.Query(ctx, query, int16(eventType), limit)
	if err != nil {
		r.log.Error().Err(err).Uint16("event_type", eventType).Msg("Failed to query journal")
		return nil, err
	}
	defer rows.Close()

	var entries []ports.JournalEntry
	for rows.Next() {
		entry, err := scanJournalEntry(rows)
		if err != nil {
			r.log.Error().Err(err).Msg("Failed to scan journal row")
			return nil, err
		}
		entries = append(entries, entry)
	}
	if rows.Err() != nil {
		r.log.Error().Err(rows.Err()).Uint16("event_type", eventType).Msg("Error iterating journal rows")
		return nil, rows.Err()
	}
	return entries, nil
}

func scanJournalEntry(row pgx.Row) (ports.JournalEntry, error) {
	var entry ports.JournalEntry
	var code int16
	err := row.Scan(&entry.MessageID, &code, &entry.Payload, &entry.ReceivedAt)
	entry.EventType = uint16(code)
	return entry, err
}
