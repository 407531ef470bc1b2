package main

import (
	"EventRelay/internal/core/domain"
	"EventRelay/internal/shared/runtime"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSink records every message it is asked to relay.
type MockSink struct {
	mock.Mock
	bodies chan string
}

func newMockSink() *MockSink {
	return &MockSink{bodies: make(chan string, 16)}
}

func (m *MockSink) Send(msg domain.Message) (int, error) {
	args := m.Called(msg)
	m.bodies <- msg.Body
	return args.Int(0), args.Error(1)
}

func (m *MockSink) next(t *testing.T) string {
	t.Helper()
	select {
	case body := <-m.bodies:
		return body
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a relayed line")
		return ""
	}
}

func TestRelayLines_RuntimeCloseDoesNotWaitForInput(t *testing.T) {
	nopLogger := zerolog.Nop()
	reader, writer, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		writer.Close()
		reader.Close()
	})

	sink := newMockSink()
	sink.On("Send", mock.Anything).Return(1, nil)

	rt := runtime.New(&nopLogger)
	task, err := rt.Spawn("stdin_source", func(ctx context.Context) {
		relayLines(ctx, reader, sink, &nopLogger)
	})
	require.NoError(t, err)

	_, err = io.WriteString(writer, "test-one\ntwo\n")
	require.NoError(t, err)
	assert.Equal(t, "test-one", sink.next(t))
	assert.Equal(t, "two", sink.next(t))

	// The writer stays open, so the reader never sees EOF.
	closed := make(chan struct{})
	go func() {
		rt.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("runtime close blocked on the input source")
	}
	<-task.Done()
	sink.AssertNumberOfCalls(t, "Send", 2)
}

func TestRelayLines_StopsAtEOF(t *testing.T) {
	nopLogger := zerolog.Nop()
	reader, writer, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { reader.Close() })

	sink := newMockSink()
	sink.On("Send", mock.Anything).Return(0, assert.AnError)

	finished := make(chan struct{})
	go func() {
		relayLines(context.Background(), reader, sink, &nopLogger)
		close(finished)
	}()

	_, err = io.WriteString(writer, "only\n")
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	// A failed send is logged and the loop keeps reading until EOF.
	assert.Equal(t, "only", sink.next(t))
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("relayLines did not return at EOF")
	}
	sink.AssertExpectations(t)
}
