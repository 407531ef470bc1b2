package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_InvalidConfig(t *testing.T) {
	nopLogger := zerolog.Nop()
	testCases := []struct {
		name string
		cfg  Config
	}{
		{name: "zero subscriber count", cfg: Config{SubscriberCount: 0, ChannelSize: 10}},
		{name: "negative channel size", cfg: Config{SubscriberCount: 1, ChannelSize: -1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewServer[testType, testEvent](tc.cfg, &nopLogger)
			if !errors.Is(err, ErrConfigInvalid) {
				t.Fatalf("expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}

func TestServer_PublishWithoutSubscriberIsBacklogged(t *testing.T) {
	s := newTestServer(t)

	s.publish(ev(typeOne, 1))

	assert.Equal(t, 1, s.backlog.len(typeOne))

	rec := &recorder{}
	s.subscribe(typeOne, rec.callback)

	assert.Equal(t, []int{1}, rec.got())
	assert.Zero(t, s.backlog.len(typeOne))
}

func TestServer_ReplayPrecedesLiveEvents(t *testing.T) {
	s := newTestServer(t)
	for i := 1; i <= 11; i++ {
		s.publish(ev(typeOne, i))
	}

	rec := &recorder{}
	s.subscribe(typeOne, rec.callback)
	s.publish(ev(typeOne, 12))
	s.publish(ev(typeOne, 13))

	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}, rec.got())
}

func TestServer_SecondSubscriberGetsNoReplay(t *testing.T) {
	s := newTestServer(t)
	s.publish(ev(typeOne, 1))

	first := &recorder{}
	second := &recorder{}
	s.subscribe(typeOne, first.callback)
	s.subscribe(typeOne, second.callback)
	s.publish(ev(typeOne, 2))

	assert.Equal(t, []int{1, 2}, first.got())
	assert.Equal(t, []int{2}, second.got())
}

func TestServer_CallbackFailureIsNotFatal(t *testing.T) {
	s := newTestServer(t)
	s.subscribe(typeOne, func(testEvent) { panic("bad subscriber") })
	rec := &recorder{}
	s.subscribe(typeOne, rec.callback)

	assert.NotPanics(t, func() { s.publish(ev(typeOne, 1)) })
	assert.Equal(t, []int{1}, rec.got())
}

func newTestInbox() *inbox[testType, testEvent] {
	done := make(chan struct{})
	return &inbox[testType, testEvent]{
		events:     newSendSide[testEvent](requestBuffer, done),
		subscribes: newSendSide[subscribeRequest[testType, testEvent]](requestBuffer, done),
	}
}

func runWithTimeout(t *testing.T, s *Server[testType, testEvent], ctx context.Context, in *inbox[testType, testEvent]) {
	t.Helper()
	finished := make(chan struct{})
	go func() {
		s.Run(ctx, in)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestServer_RunStopsAtKill(t *testing.T) {
	s := newTestServer(t)
	in := newTestInbox()

	killed := &recorder{}
	s.subscribe(killEv().Type(), killed.callback)

	in.events.ch <- ev(typeOne, 1)
	in.events.ch <- killEv()
	in.events.ch <- ev(typeOne, 2)

	runWithTimeout(t, s, context.Background(), in)

	// The kill is neither stored nor dispatched, and nothing after it runs.
	assert.Equal(t, []int{1}, seqsOf(s.backlog.drain(typeOne)))
	assert.Zero(t, s.backlog.len(killEv().Type()))
	assert.Empty(t, killed.got())
	assert.Equal(t, 1, in.events.pending())
}

func TestServer_RunNeverDispatchesKillToItsSubscribers(t *testing.T) {
	s := newTestServer(t)
	in := newTestInbox()

	killed := &recorder{}
	in.subscribes.ch <- subscribeRequest[testType, testEvent]{eventType: killEv().Type(), callback: killed.callback}
	in.subscribes.release()

	// The broker handles one request at a time, so the subscription is in
	// place before the kill is read.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	finished := make(chan struct{})
	go func() {
		s.Run(ctx, in)
		close(finished)
	}()
	require.Eventually(t, func() bool {
		return in.subscribes.pending() == 0
	}, 2*time.Second, 5*time.Millisecond)
	in.events.ch <- killEv()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, 1, s.subscribers.count(killEv().Type()))
	assert.Empty(t, killed.got())
	assert.Zero(t, s.backlog.len(killEv().Type()))
}

func TestServer_RunDrainsThenStopsWhenHandlesDropped(t *testing.T) {
	s := newTestServer(t)
	in := newTestInbox()

	rec := &recorder{}
	in.subscribes.ch <- subscribeRequest[testType, testEvent]{eventType: typeTwo, callback: rec.callback}
	in.events.ch <- ev(typeOne, 1)
	in.events.release()
	in.subscribes.release()

	runWithTimeout(t, s, context.Background(), in)

	assert.Equal(t, 1, s.subscribers.count(typeTwo))
	assert.Equal(t, 1, s.backlog.len(typeOne))
	assert.Zero(t, in.events.pending())
}

func TestServer_RunCancelledDoesNotDrain(t *testing.T) {
	s := newTestServer(t)
	in := newTestInbox()
	in.events.ch <- ev(typeOne, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runWithTimeout(t, s, ctx, in)

	require.Equal(t, 1, in.events.pending())
	assert.Zero(t, s.backlog.len(typeOne))
}
