package eventbus

// Event is the contract every value routed by the broker satisfies.
// T is the finite set of routing types; it must be usable as a map key.
type Event[T comparable] interface {
	// Type returns the routing type. It must be a pure function of the event.
	Type() T
	// IsKill reports whether the event is the control signal that
	// terminates the broker loop. Kill events are never stored or dispatched.
	IsKill() bool
}
