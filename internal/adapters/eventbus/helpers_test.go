package eventbus

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type testType int

const (
	typeOne testType = iota + 1
	typeTwo
)

type testEvent struct {
	typ  testType
	seq  int
	kill bool
}

func (e testEvent) Type() testType { return e.typ }
func (e testEvent) IsKill() bool   { return e.kill }

func ev(typ testType, seq int) testEvent {
	return testEvent{typ: typ, seq: seq}
}

func killEv() testEvent {
	return testEvent{kill: true}
}

// recorder collects the sequence numbers a callback received.
type recorder struct {
	mu   sync.Mutex
	seqs []int
}

func (r *recorder) callback(e testEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs = append(r.seqs, e.seq)
}

func (r *recorder) got() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.seqs...)
}

func newTestServer(t *testing.T) *Server[testType, testEvent] {
	t.Helper()
	nopLogger := zerolog.Nop()
	s, err := NewServer[testType, testEvent](DefaultConfig(), &nopLogger)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}
