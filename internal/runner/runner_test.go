package runner

import (
	"EventRelay/internal/core/domain"
	"EventRelay/internal/shared/runtime"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	mu     sync.Mutex
	events []domain.Event
	notify chan struct{}
}

func newReceived() *received {
	return &received{notify: make(chan struct{}, 64)}
}

func (r *received) callback(ev domain.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *received) waitFor(t *testing.T, n int) []domain.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		r.mu.Lock()
		if len(r.events) >= n {
			out := append([]domain.Event(nil), r.events...)
			r.mu.Unlock()
			return out
		}
		r.mu.Unlock()
		select {
		case <-r.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d events", n)
		}
	}
}

func newTestRunner(t *testing.T) (*runtime.Runtime, func(string) int, *Runner, *Subscriber) {
	t.Helper()
	nopLogger := zerolog.Nop()
	rt := runtime.New(&nopLogger)
	t.Cleanup(rt.Close)

	client, r, sub, err := New(rt, DefaultConfig(), &nopLogger)
	require.NoError(t, err)
	t.Cleanup(r.Stop)

	send := func(body string) int {
		n, err := client.Send(domain.NewMessage(body))
		require.NoError(t, err)
		return n
	}
	return rt, send, r, sub
}

func TestRunner_RoutesByPrefix(t *testing.T) {
	_, send, _, sub := newTestRunner(t)
	ctx := context.Background()

	typeA, typeB := newReceived(), newReceived()
	require.NoError(t, sub.Subscribe(ctx, domain.EventTypeA, typeA.callback))
	require.NoError(t, sub.Subscribe(ctx, domain.EventTypeB, typeB.callback))

	assert.Equal(t, 1, send("test-foo"))
	send("bar")

	gotA := typeA.waitFor(t, 1)
	assert.Equal(t, "test-foo", gotA[0].Message().Body)
	gotB := typeB.waitFor(t, 1)
	assert.Equal(t, "bar", gotB[0].Message().Body)
}

func TestRunner_LateSubscriberGetsBacklog(t *testing.T) {
	_, send, _, sub := newTestRunner(t)

	send("test-1")
	send("test-2")

	// Let the relay and the broker move both messages into the backlog.
	time.Sleep(50 * time.Millisecond)

	typeA := newReceived()
	require.NoError(t, sub.Subscribe(context.Background(), domain.EventTypeA, typeA.callback))

	got := typeA.waitFor(t, 2)
	assert.Equal(t, "test-1", got[0].Message().Body)
	assert.Equal(t, "test-2", got[1].Message().Body)
}

func TestRunner_StopTerminatesBroker(t *testing.T) {
	_, _, r, sub := newTestRunner(t)

	r.Stop()
	r.Stop()

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("broker still running after Stop")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))

	err := sub.Subscribe(context.Background(), domain.EventTypeA, func(domain.Event) {})
	assert.Error(t, err)
}

func TestNew_FailsOnClosedRuntime(t *testing.T) {
	nopLogger := zerolog.Nop()
	rt := runtime.New(&nopLogger)
	rt.Close()

	_, _, _, err := New(rt, DefaultConfig(), &nopLogger)
	assert.ErrorIs(t, err, runtime.ErrRuntimeClosed)
}

func TestNew_RejectsInvalidBrokerConfig(t *testing.T) {
	nopLogger := zerolog.Nop()
	rt := runtime.New(&nopLogger)
	t.Cleanup(rt.Close)

	cfg := DefaultConfig()
	cfg.Broker.ChannelSize = 0
	_, _, _, err := New(rt, cfg, &nopLogger)
	assert.Error(t, err)
}
