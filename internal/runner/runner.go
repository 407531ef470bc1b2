package runner

import (
	"EventRelay/internal/adapters/eventbus"
	"EventRelay/internal/adapters/relay"
	"EventRelay/internal/core/domain"
	"EventRelay/internal/core/ports"
	"EventRelay/internal/shared/runtime"
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Subscriber is the subscribe side of the broker a Runner drives.
type Subscriber = eventbus.SubscribeHandle[domain.EventType, domain.Event]

var (
	_ ports.EventPublisher  = (*eventbus.EventHandle[domain.Event])(nil)
	_ ports.EventSubscriber = (*Subscriber)(nil)
)

// Config groups what the runner needs to build its actors.
type Config struct {
	Broker          eventbus.Config
	Prefix          string
	RelayBufferSize int
}

// DefaultConfig mirrors the service defaults.
func DefaultConfig() Config {
	return Config{
		Broker:          eventbus.DefaultConfig(),
		Prefix:          domain.DefaultPrefix,
		RelayBufferSize: 120,
	}
}

// Runner owns a broker and the relay client feeding it.
type Runner struct {
	hub        *relay.Hub
	brokerTask *runtime.Task
	relayTask  *runtime.Task
	done       <-chan struct{}
	stopOnce   sync.Once
	log        zerolog.Logger
}

// New spawns a broker and a relay client on rt. Messages sent through
// the returned ClientHandle are classified and published to the broker;
// the returned Subscriber registers callbacks on it.
func New(rt *runtime.Runtime, cfg Config, baseLogger *zerolog.Logger) (relay.ClientHandle, *Runner, *Subscriber, error) {
	log := baseLogger.With().Str("component", "runner").Logger()

	server, err := eventbus.NewServer[domain.EventType, domain.Event](cfg.Broker, baseLogger)
	if err != nil {
		return relay.ClientHandle{}, nil, nil, fmt.Errorf("runner: %w", err)
	}
	broker, err := eventbus.NewServerHandle(server, rt)
	if err != nil {
		return relay.ClientHandle{}, nil, nil, fmt.Errorf("runner: spawn broker: %w", err)
	}
	done := broker.Done()
	events, subscriber, brokerTask := broker.Split()

	hub := relay.NewHub(cfg.RelayBufferSize, baseLogger)
	client, err := relay.NewClient(hub, events, cfg.Prefix, baseLogger)
	if err != nil {
		brokerTask.Abort()
		return relay.ClientHandle{}, nil, nil, fmt.Errorf("runner: attach relay client: %w", err)
	}

	relayTask, err := rt.Spawn("relay_client", func(ctx context.Context) {
		// The relay is the only producer; once it is gone the broker
		// drains and stops by itself.
		defer events.Close()
		client.Run(ctx)
	})
	if err != nil {
		brokerTask.Abort()
		hub.Close()
		return relay.ClientHandle{}, nil, nil, fmt.Errorf("runner: spawn relay client: %w", err)
	}

	r := &Runner{
		hub:        hub,
		brokerTask: brokerTask,
		relayTask:  relayTask,
		done:       done,
		log:        log,
	}
	log.Info().
		Str("prefix", cfg.Prefix).
		Int("relay_buffer", cfg.RelayBufferSize).
		Msg("Runner started")

	return relay.NewClientHandle(hub), r, subscriber, nil
}

// Stop aborts the broker and the relay client. Safe to call repeatedly.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.log.Info().Msg("Stopping runner")
		r.brokerTask.Abort()
		r.relayTask.Abort()
		r.hub.Close()
	})
}

// Done is closed once the broker has terminated, whatever the cause.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until both actors have returned or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	if err := r.brokerTask.Wait(ctx); err != nil {
		return err
	}
	return r.relayTask.Wait(ctx)
}
