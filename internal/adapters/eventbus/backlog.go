package eventbus

// backlog keeps, per type, the most recent events published while the
// type had no subscriber. Owned by the broker goroutine.
type backlog[T comparable, E any] struct {
	queues   map[T][]E
	capacity int
	presize  int
}

func newBacklog[T comparable, E any](capacity, presize int) *backlog[T, E] {
	return &backlog[T, E]{
		queues:   make(map[T][]E, 4),
		capacity: capacity,
		presize:  presize,
	}
}

// push appends ev and drops the oldest entry when over capacity.
func (b *backlog[T, E]) push(t T, ev E) {
	q, ok := b.queues[t]
	if !ok {
		q = make([]E, 0, b.presize)
	}
	q = append(q, ev)
	if len(q) > b.capacity {
		copy(q, q[1:])
		var zero E
		q[len(q)-1] = zero
		q = q[:len(q)-1]
	}
	b.queues[t] = q
}

// drain removes and returns everything queued for t, oldest first.
func (b *backlog[T, E]) drain(t T) []E {
	q := b.queues[t]
	if len(q) == 0 {
		return nil
	}
	out := make([]E, len(q))
	copy(out, q)
	clear(q)
	b.queues[t] = q[:0]
	return out
}

func (b *backlog[T, E]) len(t T) int {
	return len(b.queues[t])
}
