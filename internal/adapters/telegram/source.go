package telegram

import (
	"EventRelay/internal/adapters/relay"
	"EventRelay/internal/core/domain"
	"EventRelay/internal/core/ports"
	"EventRelay/internal/shared/config"
	"context"
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Source feeds the text of incoming chat messages into the relay.
// It does not interpret updates; classification happens downstream.
type Source struct {
	api  *tgbotapi.BotAPI
	cfg  *config.TelegramConfig
	sink ports.MessageSink
	log  zerolog.Logger
}

// NewSource creates a new source instance
func NewSource(
	api *tgbotapi.BotAPI,
	cfg *config.TelegramConfig,
	sink ports.MessageSink,
	baseLogger *zerolog.Logger,
) *Source {
	return &Source{
		api:  api,
		cfg:  cfg,
		sink: sink,
		log:  baseLogger.With().Str("component", "telegram_source").Logger(),
	}
}

// Start receives updates in the configured mode until ctx is cancelled.
func (s *Source) Start(ctx context.Context) error {
	s.log.Info().Str("mode", s.cfg.Mode).Msg("Starting telegram source...")

	switch s.cfg.Mode {
	case config.TelegramModePolling:
		return s.startPolling(ctx)
	case config.TelegramModeWebhook:
		return s.startWebhook(ctx)
	default:
		return fmt.Errorf("unknown bot mode: %s", s.cfg.Mode)
	}
}

func (s *Source) startPolling(ctx context.Context) error {
	// 1. Clear any existing webhook
	deleteWebhookConfig := tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: false,
	}
	if _, err := s.api.Request(deleteWebhookConfig); err != nil {
		s.log.Warn().Err(err).Msg("Failed to delete webhook (continuing anyway)")
	}

	// 2. Only plain messages and channel posts carry text we relay
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "channel_post"}
	updates := s.api.GetUpdatesChan(u)

	s.log.Info().Msg("Polling update listener started")
	err := s.relay(ctx, updates)
	s.api.StopReceivingUpdates()
	s.log.Info().Msg("Polling stopped gracefully")
	return err
}

func (s *Source) startWebhook(ctx context.Context) error {
	// 1. Set the webhook
	webhookURL := fmt.Sprintf("%s/webhook/%s", s.cfg.WebhookURL, s.api.Token)
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to create webhook config")
		return err
	}
	if _, err = s.api.Request(wh); err != nil {
		s.log.Error().Err(err).Msg("Failed to set webhook")
		return err
	}
	info, err := s.api.GetWebhookInfo()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get webhook info")
		return err
	}
	if info.LastErrorDate != 0 {
		s.log.Error().
			Str("error_message", info.LastErrorMessage).
			Msg("Telegram webhook has a last error")
	}

	// 2. Serve the webhook behind a TLS-terminating reverse proxy
	mux := http.NewServeMux()
	updates := make(chan tgbotapi.Update, s.api.Buffer)
	mux.HandleFunc("/webhook/"+s.api.Token, func(w http.ResponseWriter, r *http.Request) {
		update, err := s.api.HandleUpdate(r)
		if err != nil {
			s.log.Warn().Err(err).Msg("Rejected webhook request")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		select {
		case updates <- *update:
		case <-r.Context().Done():
		}
	})

	listenAddr := fmt.Sprintf("127.0.0.1:%d", s.cfg.ListenPort)
	httpServer := &http.Server{Addr: listenAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("Webhook HTTP server failed")
		}
	}()
	s.log.Info().Str("addr", listenAddr).Msg("Webhook update listener started")

	err = s.relay(ctx, updates)

	s.log.Info().Msg("Shutting down HTTP server...")
	if shutdownErr := httpServer.Shutdown(context.Background()); shutdownErr != nil {
		s.log.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
	}
	s.log.Info().Msg("Webhook server stopped gracefully")
	return err
}

// relay forwards updates until ctx is done or updates is closed.
func (s *Source) relay(ctx context.Context, updates <-chan tgbotapi.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			s.forward(update)
		}
	}
}

func (s *Source) forward(update tgbotapi.Update) {
	text := updateText(update)
	if text == "" {
		return
	}

	msg := domain.NewMessage(text)
	n, err := s.sink.Send(msg)
	switch {
	case errors.Is(err, relay.ErrNoListeners):
		s.log.Warn().Int("update_id", update.UpdateID).Msg("No relay listener, message lost")
	case err != nil:
		s.log.Error().Err(err).Int("update_id", update.UpdateID).Msg("Failed to relay message")
	default:
		s.log.Debug().
			Int("update_id", update.UpdateID).
			Str("message_id", msg.ID.String()).
			Int("listeners", n).
			Msg("Relayed message")
	}
}

func updateText(update tgbotapi.Update) string {
	switch {
	case update.Message != nil:
		return update.Message.Text
	case update.ChannelPost != nil:
		return update.ChannelPost.Text
	default:
		return ""
	}
}
