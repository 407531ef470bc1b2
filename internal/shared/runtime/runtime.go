package runtime

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
)

// ErrRuntimeClosed is returned when spawning on a runtime that was closed.
var ErrRuntimeClosed = errors.New("runtime is closed")

// Runtime owns every long-lived actor goroutine of the service.
// Closing it cancels all tasks and waits for them to return.
type Runtime struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a runtime rooted at a fresh background context.
func New(baseLogger *zerolog.Logger) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runtime{
		ctx:    ctx,
		cancel: cancel,
		log:    baseLogger.With().Str("component", "runtime").Logger(),
	}
}

// Spawn runs fn on its own goroutine. The context passed to fn is
// cancelled by Task.Abort or by Runtime.Close.
// A panic inside fn is logged and ends only that task.
func (r *Runtime) Spawn(name string, fn func(ctx context.Context)) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRuntimeClosed
	}

	ctx, cancel := context.WithCancel(r.ctx)
	task := &Task{name: name, cancel: cancel, done: make(chan struct{})}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(task.done)
		defer cancel()
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error().
					Str("task", name).
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("Task panicked")
			}
		}()
		r.log.Debug().Str("task", name).Msg("Task started")
		fn(ctx)
		r.log.Debug().Str("task", name).Msg("Task finished")
	}()

	return task, nil
}

// Close cancels every task and blocks until all of them returned.
// Calling Close more than once is fine.
func (r *Runtime) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	r.log.Info().Msg("Runtime closed")
}

// Closed reports whether Close was called.
func (r *Runtime) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Task is the join handle of a spawned goroutine.
type Task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Name returns the name the task was spawned with.
func (t *Task) Name() string {
	return t.name
}

// Abort cancels the task's context. It does not wait.
func (t *Task) Abort() {
	t.cancel()
}

// Done is closed once the task function returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finished or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
