// Package boundary exposes runners to callers that can only hold opaque
// identifiers. Every object is created, taken and destroyed through the
// Arena, and every object that needs a runtime refers to it by ID.
package boundary

import (
	"EventRelay/internal/adapters/relay"
	"EventRelay/internal/core/domain"
	"EventRelay/internal/runner"
	"EventRelay/internal/shared/runtime"
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/alphadose/haxmap"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidHandle is returned for IDs that are unknown, already
	// destroyed, or of the wrong kind for the call.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrAlreadyTaken is returned when a part of a broker triple is taken twice.
	ErrAlreadyTaken = errors.New("handle already taken")

	// ErrRuntimeGone is returned when the runtime an object depends on was destroyed.
	ErrRuntimeGone = errors.New("runtime already dropped")
)

// ID identifies one object owned by an Arena.
type ID string

func newID() ID {
	return ID(uuid.NewString())
}

// slot wraps an arena value so that it is destroyed exactly once.
type slot[T any] struct {
	value T
	dead  atomic.Bool
}

// bound is an object that reaches its runtime through the arena.
type bound[T any] struct {
	runtimeID ID
	value     T
}

// triple is the result of CreateBroker until its parts are taken.
type triple struct {
	runtimeID  ID
	ingress    relay.ClientHandle
	control    *runner.Runner
	subscriber *runner.Subscriber

	ingressTaken    atomic.Bool
	controlTaken    atomic.Bool
	subscriberTaken atomic.Bool
}

// Arena owns every object handed across the boundary.
type Arena struct {
	cfg runner.Config

	runtimes    *haxmap.Map[ID, *slot[*runtime.Runtime]]
	triples     *haxmap.Map[ID, *slot[*triple]]
	ingresses   *haxmap.Map[ID, *slot[bound[relay.ClientHandle]]]
	controls    *haxmap.Map[ID, *slot[bound[*runner.Runner]]]
	subscribers *haxmap.Map[ID, *slot[bound[*runner.Subscriber]]]

	baseLogger *zerolog.Logger
	log        zerolog.Logger
}

// NewArena creates an empty arena. Brokers it creates use cfg.
func NewArena(cfg runner.Config, baseLogger *zerolog.Logger) *Arena {
	return &Arena{
		cfg:         cfg,
		runtimes:    haxmap.New[ID, *slot[*runtime.Runtime]](),
		triples:     haxmap.New[ID, *slot[*triple]](),
		ingresses:   haxmap.New[ID, *slot[bound[relay.ClientHandle]]](),
		controls:    haxmap.New[ID, *slot[bound[*runner.Runner]]](),
		subscribers: haxmap.New[ID, *slot[bound[*runner.Subscriber]]](),
		baseLogger:  baseLogger,
		log:         baseLogger.With().Str("component", "arena").Logger(),
	}
}

// CreateRuntime starts a runtime and returns its ID.
func (a *Arena) CreateRuntime() ID {
	id := newID()
	a.runtimes.Set(id, &slot[*runtime.Runtime]{value: runtime.New(a.baseLogger)})
	a.log.Debug().Str("runtime_id", string(id)).Msg("Runtime created")
	return id
}

// DestroyRuntime stops every task of the runtime. Objects bound to it
// stay valid IDs, but calls needing the runtime fail with ErrRuntimeGone.
func (a *Arena) DestroyRuntime(id ID) error {
	rt, err := claim(a.runtimes, id)
	if err != nil {
		return err
	}
	rt.Close()
	a.log.Debug().Str("runtime_id", string(id)).Msg("Runtime destroyed")
	return nil
}

// CreateBroker builds a runner on the runtime and returns the triple
// holding its ingress, control and subscriber parts.
func (a *Arena) CreateBroker(runtimeID ID) (ID, error) {
	rt, err := a.runtime(runtimeID)
	if err != nil {
		return "", err
	}

	client, r, sub, err := runner.New(rt, a.cfg, a.baseLogger)
	if err != nil {
		if errors.Is(err, runtime.ErrRuntimeClosed) {
			return "", fmt.Errorf("%w: %w", ErrRuntimeGone, err)
		}
		return "", err
	}

	id := newID()
	a.triples.Set(id, &slot[*triple]{value: &triple{
		runtimeID:  runtimeID,
		ingress:    client,
		control:    r,
		subscriber: sub,
	}})
	return id, nil
}

// TakeIngress hands out the triple's ingress once.
func (a *Arena) TakeIngress(tripleID ID) (ID, error) {
	t, err := lookup(a.triples, tripleID)
	if err != nil {
		return "", err
	}
	if !t.ingressTaken.CompareAndSwap(false, true) {
		return "", ErrAlreadyTaken
	}
	id := newID()
	a.ingresses.Set(id, &slot[bound[relay.ClientHandle]]{value: bound[relay.ClientHandle]{t.runtimeID, t.ingress}})
	return id, nil
}

// TakeControl hands out the triple's runner once.
func (a *Arena) TakeControl(tripleID ID) (ID, error) {
	t, err := lookup(a.triples, tripleID)
	if err != nil {
		return "", err
	}
	if !t.controlTaken.CompareAndSwap(false, true) {
		return "", ErrAlreadyTaken
	}
	id := newID()
	a.controls.Set(id, &slot[bound[*runner.Runner]]{value: bound[*runner.Runner]{t.runtimeID, t.control}})
	return id, nil
}

// TakeSubscriber hands out the triple's subscriber once.
func (a *Arena) TakeSubscriber(tripleID ID) (ID, error) {
	t, err := lookup(a.triples, tripleID)
	if err != nil {
		return "", err
	}
	if !t.subscriberTaken.CompareAndSwap(false, true) {
		return "", ErrAlreadyTaken
	}
	id := newID()
	a.subscribers.Set(id, &slot[bound[*runner.Subscriber]]{value: bound[*runner.Subscriber]{t.runtimeID, t.subscriber}})
	return id, nil
}

// Publish relays body and returns the number of listeners reached.
func (a *Arena) Publish(ingressID ID, body string) (int, error) {
	in, err := lookup(a.ingresses, ingressID)
	if err != nil {
		return 0, err
	}
	if _, err := a.runtime(in.runtimeID); err != nil {
		return 0, err
	}
	return in.value.Send(domain.NewMessage(body))
}

// Subscribe registers callback for the type with the given code. The
// request is sent from a task on runtimeID and Subscribe waits for it.
func (a *Arena) Subscribe(subscriberID ID, typeCode uint16, callback func(domain.Event), runtimeID ID) error {
	eventType, err := domain.ParseEventType(typeCode)
	if err != nil {
		return err
	}
	sub, err := lookup(a.subscribers, subscriberID)
	if err != nil {
		return err
	}
	rt, err := a.runtime(runtimeID)
	if err != nil {
		return err
	}

	var subErr error
	task, err := rt.Spawn("subscribe", func(ctx context.Context) {
		subErr = sub.value.Subscribe(ctx, eventType, callback)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntimeGone, err)
	}
	if err := task.Wait(context.Background()); err != nil {
		return err
	}
	return subErr
}

// Stop aborts the broker behind controlID. Stopping twice is fine.
func (a *Arena) Stop(controlID ID) error {
	c, err := lookup(a.controls, controlID)
	if err != nil {
		return err
	}
	c.value.Stop()
	return nil
}

// Destroy releases any object created by the arena, runtimes included.
// Each ID can be destroyed once.
func (a *Arena) Destroy(id ID) error {
	if _, ok := a.runtimes.Get(id); ok {
		return a.DestroyRuntime(id)
	}
	if t, err := claim(a.triples, id); err == nil {
		// A subscriber nobody took can never be closed by anyone else.
		if !t.subscriberTaken.Load() {
			t.subscriber.Close()
		}
		return nil
	}
	if _, err := claim(a.ingresses, id); err == nil {
		return nil
	}
	if _, err := claim(a.controls, id); err == nil {
		return nil
	}
	if sub, err := claim(a.subscribers, id); err == nil {
		sub.value.Close()
		return nil
	}
	return ErrInvalidHandle
}

// Close destroys every runtime still alive.
func (a *Arena) Close() {
	var ids []ID
	a.runtimes.ForEach(func(id ID, _ *slot[*runtime.Runtime]) bool {
		ids = append(ids, id)
		return true
	})
	for _, id := range ids {
		_ = a.DestroyRuntime(id)
	}
}

func (a *Arena) runtime(id ID) (*runtime.Runtime, error) {
	rt, err := lookup(a.runtimes, id)
	if err != nil || rt.Closed() {
		return nil, ErrRuntimeGone
	}
	return rt, nil
}

func lookup[T any](m *haxmap.Map[ID, *slot[T]], id ID) (T, error) {
	s, ok := m.Get(id)
	if !ok || s.dead.Load() {
		var zero T
		return zero, ErrInvalidHandle
	}
	return s.value, nil
}

// claim marks the slot dead and removes it. Only one caller wins.
func claim[T any](m *haxmap.Map[ID, *slot[T]], id ID) (T, error) {
	var zero T
	s, ok := m.Get(id)
	if !ok || !s.dead.CompareAndSwap(false, true) {
		return zero, ErrInvalidHandle
	}
	m.Del(id)
	return s.value, nil
}
