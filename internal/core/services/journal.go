package services

import (
	"EventRelay/internal/core/domain"
	"EventRelay/internal/core/ports"
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// DefaultJournalQueue is the number of events a JournalSink buffers.
const DefaultJournalQueue = 256

// JournalSink records delivered events in the journal. Its callback runs
// on the broker goroutine and only enqueues; Run does the slow work.
type JournalSink struct {
	journal ports.EventJournal
	sealer  ports.SealerPort
	queue   chan domain.Event
	dropped atomic.Uint64
	log     zerolog.Logger
}

// NewJournalSink creates a sink buffering up to queueSize events.
func NewJournalSink(journal ports.EventJournal, sealer ports.SealerPort, queueSize int, baseLogger *zerolog.Logger) *JournalSink {
	if queueSize <= 0 {
		queueSize = DefaultJournalQueue
	}
	return &JournalSink{
		journal: journal,
		sealer:  sealer,
		queue:   make(chan domain.Event, queueSize),
		log:     baseLogger.With().Str("component", "journal_sink").Logger(),
	}
}

// Callback returns the function to subscribe with. It never blocks;
// events arriving while the queue is full are dropped and counted.
func (s *JournalSink) Callback() func(domain.Event) {
	return func(event domain.Event) {
		select {
		case s.queue <- event:
		default:
			n := s.dropped.Add(1)
			s.log.Warn().
				Str("message_id", event.Message().ID.String()).
				Uint64("dropped_total", n).
				Msg("Journal queue full, event dropped")
		}
	}
}

// Dropped returns how many events never reached the journal queue.
func (s *JournalSink) Dropped() uint64 {
	return s.dropped.Load()
}

// Run writes queued events until ctx is done.
func (s *JournalSink) Run(ctx context.Context) {
	s.log.Info().Msg("Journal sink started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Int("pending", len(s.queue)).Msg("Journal sink stopped (context done)")
			return
		case event := <-s.queue:
			if err := s.record(ctx, event); err != nil {
				s.log.Error().
					Err(err).
					Str("message_id", event.Message().ID.String()).
					Stringer("event_type", event.Type()).
					Msg("Failed to journal event")
			}
		}
	}
}

func (s *JournalSink) record(ctx context.Context, event domain.Event) error {
	msg := event.Message()
	code := event.Type().Code()

	sealed, err := s.sealer.Seal([]byte(msg.Body), TypeAAD(code))
	if err != nil {
		return fmt.Errorf("seal payload: %w", err)
	}

	return s.journal.Append(ctx, ports.JournalEntry{
		MessageID:  msg.ID,
		EventType:  code,
		Payload:    sealed,
		ReceivedAt: msg.ReceivedAt,
	})
}

// TypeAAD is the associated data a journaled payload is sealed with.
// Opening a payload under another type code fails.
func TypeAAD(code uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, code)
}
