package relay

import (
	"EventRelay/internal/core/domain"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	// ErrHubClosed is returned once the hub is closed and a listener's buffer is empty.
	ErrHubClosed = errors.New("relay hub is closed")

	// ErrNoListeners is returned when a broadcast reached nobody.
	ErrNoListeners = errors.New("relay hub has no listeners")

	// ErrLagged matches every *LaggedError.
	ErrLagged = errors.New("relay listener lagged")
)

// LaggedError reports messages dropped because a listener's buffer was full.
type LaggedError struct {
	Skipped uint64
}

// Error implements the error interface.
func (e *LaggedError) Error() string {
	return fmt.Sprintf("relay listener lagged, skipped %d messages", e.Skipped)
}

// Is allows errors.Is to match LaggedError with ErrLagged.
func (e *LaggedError) Is(target error) bool {
	return target == ErrLagged
}

// Hub broadcasts every message to every listener. A listener whose buffer
// is full misses the message and learns about it on its next Receive;
// the broadcaster never waits for a slow listener.
type Hub struct {
	mu         sync.RWMutex
	listeners  map[uint64]*Listener
	nextID     uint64
	bufferSize int
	closed     chan struct{}
	closeOnce  sync.Once
	log        zerolog.Logger
}

// NewHub creates a hub with bufferSize messages of room per listener.
func NewHub(bufferSize int, baseLogger *zerolog.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Hub{
		listeners:  make(map[uint64]*Listener),
		bufferSize: bufferSize,
		closed:     make(chan struct{}),
		log:        baseLogger.With().Str("component", "relay_hub").Logger(),
	}
}

// Subscribe adds a listener that sees every message broadcast from now on.
func (h *Hub) Subscribe() (*Listener, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.isClosed() {
		return nil, ErrHubClosed
	}

	h.nextID++
	l := &Listener{
		id:  h.nextID,
		hub: h,
		ch:  make(chan domain.Message, h.bufferSize),
	}
	h.listeners[l.id] = l
	return l, nil
}

// Broadcast hands msg to every listener and returns how many took it.
func (h *Hub) Broadcast(msg domain.Message) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.isClosed() {
		return 0, ErrHubClosed
	}
	if len(h.listeners) == 0 {
		return 0, ErrNoListeners
	}

	delivered := 0
	for id, l := range h.listeners {
		select {
		case l.ch <- msg:
			delivered++
		default:
			l.lagged.Add(1)
			h.log.Warn().Uint64("listener_id", id).Msg("Listener buffer full, message dropped")
		}
	}
	return delivered, nil
}

// ListenerCount returns the number of attached listeners.
func (h *Hub) ListenerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Close stops the hub. Listeners still receive what is buffered, then ErrHubClosed.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		close(h.closed)
		h.mu.Unlock()
		h.log.Info().Msg("Relay hub closed")
	})
}

func (h *Hub) isClosed() bool {
	select {
	case <-h.closed:
		return true
	default:
		return false
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.listeners, id)
}

// Listener is the receive side of one hub subscription.
type Listener struct {
	id     uint64
	hub    *Hub
	ch     chan domain.Message
	lagged atomic.Uint64
}

// Receive returns the next message. It reports dropped messages with a
// *LaggedError before returning anything newer.
func (l *Listener) Receive(ctx context.Context) (domain.Message, error) {
	if n := l.lagged.Swap(0); n > 0 {
		return domain.Message{}, &LaggedError{Skipped: n}
	}

	select {
	case msg := <-l.ch:
		return msg, nil
	default:
	}

	select {
	case msg := <-l.ch:
		return msg, nil
	case <-l.hub.closed:
		select {
		case msg := <-l.ch:
			return msg, nil
		default:
			return domain.Message{}, ErrHubClosed
		}
	case <-ctx.Done():
		return domain.Message{}, ctx.Err()
	}
}

// Close detaches the listener from its hub.
func (l *Listener) Close() {
	l.hub.remove(l.id)
}
