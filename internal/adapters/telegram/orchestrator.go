package telegram

import (
	"EventRelay/internal/core/domain"
	"EventRelay/internal/core/ports"
	"EventRelay/internal/shared/config"
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Orchestrator runs the Telegram side of the service: the source that
// feeds the relay and, when a chat is configured, the notifier.
type Orchestrator struct {
	cfg        *config.Config
	sink       ports.MessageSink
	subscriber ports.EventSubscriber
	baseLogger *zerolog.Logger
	wg         sync.WaitGroup
}

// NewOrchestrator creates a new telegram orchestrator.
func NewOrchestrator(
	cfg *config.Config,
	sink ports.MessageSink,
	subscriber ports.EventSubscriber,
	baseLogger *zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		sink:       sink,
		subscriber: subscriber,
		baseLogger: baseLogger,
	}
}

// Start connects to Telegram and blocks until ctx is cancelled.
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := o.baseLogger.With().Str("bot", "relay").Logger()
	cfg := &o.cfg.Telegram

	// 1. Create API
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return fmt.Errorf("telegram: connect: %w", err)
	}
	api.Debug = o.cfg.IsDev()
	log.Info().Str("username", api.Self.UserName).Msg("Bot API connected")

	// 2. Notifier for prefix-matched events
	if cfg.NotifyChatID != 0 {
		notifier := NewNotifier(NewClient(api, &log), cfg.NotifyChatID, DefaultNotifyQueue, &log)
		if err := o.subscriber.Subscribe(ctx, domain.EventTypeA, notifier.Callback()); err != nil {
			return fmt.Errorf("telegram: subscribe notifier: %w", err)
		}
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			notifier.Run(ctx)
		}()
	}

	// 3. Source blocks until shutdown
	err = NewSource(api, cfg, o.sink, &log).Start(ctx)
	cancel()
	o.wg.Wait()
	return err
}
