package telegram

import (
	"EventRelay/internal/core/domain"
	"EventRelay/internal/core/ports"
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// DefaultNotifyQueue is the number of events a Notifier buffers.
const DefaultNotifyQueue = 64

// Notifier posts every event it is subscribed to into one chat.
// The broker calls Callback; Run talks to Telegram from its own goroutine.
type Notifier struct {
	client ports.BotClientPort
	chatID int64
	queue  chan domain.Event
	log    zerolog.Logger
}

// NewNotifier creates a notifier for chatID.
func NewNotifier(client ports.BotClientPort, chatID int64, queueSize int, baseLogger *zerolog.Logger) *Notifier {
	if queueSize <= 0 {
		queueSize = DefaultNotifyQueue
	}
	return &Notifier{
		client: client,
		chatID: chatID,
		queue:  make(chan domain.Event, queueSize),
		log:    baseLogger.With().Str("component", "telegram_notifier").Int64("chat_id", chatID).Logger(),
	}
}

// Callback returns the function to subscribe with. A full queue drops the event.
func (n *Notifier) Callback() func(domain.Event) {
	return func(event domain.Event) {
		select {
		case n.queue <- event:
		default:
			n.log.Warn().Str("message_id", event.Message().ID.String()).Msg("Notify queue full, event dropped")
		}
	}
}

// Run delivers queued events until ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	n.log.Info().Msg("Notifier started")
	for {
		select {
		case <-ctx.Done():
			n.log.Info().Msg("Notifier stopped (context done)")
			return
		case event := <-n.queue:
			params := ports.SendMessageParams{
				ChatID: n.chatID,
				Text:   FormatEvent(event),
			}
			if err := n.client.SendMessage(ctx, params); err != nil {
				n.log.Error().Err(err).Str("message_id", event.Message().ID.String()).Msg("Failed to notify")
			}
		}
	}
}

// FormatEvent renders an event as plain chat text.
func FormatEvent(event domain.Event) string {
	msg := event.Message()
	return fmt.Sprintf("[%s] %s\n(id %s, %s)",
		event.Type(), msg.Body, msg.ID, msg.ReceivedAt.Format("2006-01-02 15:04:05 MST"))
}
