package main

import (
	"EventRelay/internal/adapters/postgres"
	"EventRelay/internal/adapters/security"
	"EventRelay/internal/adapters/telegram"
	"EventRelay/internal/core/domain"
	"EventRelay/internal/core/services"
	"EventRelay/internal/runner"
	"EventRelay/internal/shared/config"
	"EventRelay/internal/shared/logger"
	"EventRelay/internal/shared/runtime"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	baseLogger := logger.New(cfg.IsDev(), cfg.LogLevel)
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Int("subscriber_count", cfg.Broker.SubscriberCount).
		Int("channel_size", cfg.Broker.ChannelSize).
		Str("relay_prefix", cfg.Relay.Prefix).
		Bool("telegram", cfg.TelegramEnabled()).
		Bool("journal", cfg.JournalEnabled()).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Start the runtime and the runner
	rt := runtime.New(&baseLogger)
	defer rt.Close()

	client, r, subscriber, err := runner.New(rt, cfg.Runner(), &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to start runner")
	}
	defer r.Stop()

	// 4. Log every delivered event
	for _, t := range []domain.EventType{domain.EventTypeA, domain.EventTypeB} {
		if err := subscriber.Subscribe(ctx, t, logDelivery(&baseLogger)); err != nil {
			baseLogger.Fatal().Err(err).Stringer("event_type", t).Msg("Failed to subscribe delivery log")
		}
	}

	// 5. Event journal
	if cfg.JournalEnabled() {
		db, err := startJournal(ctx, cfg, rt, subscriber, &baseLogger)
		if err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to start event journal")
		}
		defer db.Close()
	}

	// 6. Ingress: Telegram when configured, stdin otherwise
	if cfg.TelegramEnabled() {
		orchestrator := telegram.NewOrchestrator(cfg, client, subscriber, &baseLogger)
		_, err = rt.Spawn("telegram", func(ctx context.Context) {
			if err := orchestrator.Start(ctx); err != nil {
				baseLogger.Error().Err(err).Msg("Telegram orchestrator failed")
			}
		})
	} else {
		_, err = rt.Spawn("stdin_source", func(ctx context.Context) {
			relayLines(ctx, os.Stdin, client, &baseLogger)
		})
	}
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to start ingress")
	}

	baseLogger.Info().Msg("Application started")

	// 7. Run until a signal arrives or the broker terminates by itself
	select {
	case <-ctx.Done():
		baseLogger.Info().Msg("Shutdown signal received")
	case <-r.Done():
		baseLogger.Warn().Msg("Event broker terminated, shutting down")
	}
}

func startJournal(
	ctx context.Context,
	cfg *config.Config,
	rt *runtime.Runtime,
	subscriber *runner.Subscriber,
	baseLogger *zerolog.Logger,
) (*postgres.DB, error) {
	sealer, err := security.NewAESSealerFromHex(cfg.EncryptionKey, baseLogger)
	if err != nil {
		return nil, err
	}

	db, err := postgres.NewDB(ctx, cfg.Postgres, baseLogger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	sink := services.NewJournalSink(postgres.NewJournalRepository(db, baseLogger), sealer, services.DefaultJournalQueue, baseLogger)
	for _, t := range []domain.EventType{domain.EventTypeA, domain.EventTypeB} {
		if err := subscriber.Subscribe(ctx, t, sink.Callback()); err != nil {
			db.Close()
			return nil, err
		}
	}
	if _, err := rt.Spawn("journal_sink", sink.Run); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func logDelivery(baseLogger *zerolog.Logger) func(domain.Event) {
	log := baseLogger.With().Str("component", "delivery_log").Logger()
	return func(ev domain.Event) {
		log.Debug().
			Stringer("event_type", ev.Type()).
			Str("message_id", ev.Message().ID.String()).
			Str("body", ev.Message().Body).
			Msg("Event delivered")
	}
}
