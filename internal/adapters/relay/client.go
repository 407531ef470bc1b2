package relay

import (
	"EventRelay/internal/core/domain"
	"EventRelay/internal/core/ports"
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// ClientHandle is the ingress side of the relay. Copies share the hub.
type ClientHandle struct {
	hub *Hub
}

var _ ports.MessageSink = ClientHandle{} // Ensure compliance

// NewClientHandle wraps hub.
func NewClientHandle(hub *Hub) ClientHandle {
	return ClientHandle{hub: hub}
}

// Send broadcasts msg to every listener, the relay client included,
// and returns how many listeners received it.
func (h ClientHandle) Send(msg domain.Message) (int, error) {
	return h.hub.Broadcast(msg)
}

// Listen attaches an extra listener, e.g. to echo relayed messages.
func (h ClientHandle) Listen() (*Listener, error) {
	return h.hub.Subscribe()
}

// Client is the relay actor: it classifies every relayed message and
// publishes the resulting event to the broker.
type Client struct {
	listener  *Listener
	publisher ports.EventPublisher
	prefix    string
	log       zerolog.Logger
}

// NewClient attaches a listener to hub. Events go to publisher.
func NewClient(hub *Hub, publisher ports.EventPublisher, prefix string, baseLogger *zerolog.Logger) (*Client, error) {
	listener, err := hub.Subscribe()
	if err != nil {
		return nil, err
	}
	return &Client{
		listener:  listener,
		publisher: publisher,
		prefix:    prefix,
		log:       baseLogger.With().Str("component", "relay_client").Logger(),
	}, nil
}

// Run relays until ctx is cancelled or the hub is closed.
//
// Every receive error makes the client forward one kill event to the
// broker. A lagged listener keeps relaying afterwards; a closed hub
// cannot produce anything more, so the loop ends there.
func (c *Client) Run(ctx context.Context) {
	defer c.listener.Close()
	c.log.Info().Str("prefix", c.prefix).Msg("Relay client started")

	for {
		msg, err := c.listener.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info().Msg("Relay client stopped (context done)")
				return
			}

			c.log.Warn().Err(err).Msg("Relay receive failed, killing event broker")
			if sendErr := c.publisher.Send(ctx, domain.KillEvent()); sendErr != nil {
				c.log.Error().Err(sendErr).Msg("Failed to forward kill event")
			}

			if errors.Is(err, ErrHubClosed) {
				c.log.Info().Msg("Relay client stopped (hub closed)")
				return
			}
			continue
		}

		event := domain.Classify(c.prefix, msg)
		if err := c.publisher.Send(ctx, event); err != nil {
			c.log.Warn().
				Err(err).
				Str("message_id", msg.ID.String()).
				Stringer("event_type", event.Type()).
				Msg("Failed to publish relayed message")
		}
	}
}
