package service

// Service defines a runtime subsystem coordinated by the Dispatcher
// Services opt into broadcast events by listing a handler per event name
//
// Lifecycle:
//  1. Construction (explicit, receives whatever it needs)
//  2. Dispatcher.Register - uniqueness by concrete type, Attach called if implemented
//  3. EventInit broadcast before the first frame
//  4. [EventTick / EventUpdate / EventDraw every frame, object events on demand]
type Service interface {
	// Priority orders handlers within a broadcast, lower runs earlier
	Priority() int

	// Handlers returns the events this service subscribes to
	// Read when a broadcast cache entry is built, not on every broadcast
	Handlers() Handlers
}

// Attacher is implemented by services that need the owning Dispatcher
// Optional interface - services not implementing it are registered as-is
type Attacher interface {
	Attach(d *Dispatcher)
}

// Base provides the dispatcher back-reference
// Embed in service struct to satisfy Attacher
type Base struct {
	dispatcher *Dispatcher
}

// Attach implements Attacher
func (b *Base) Attach(d *Dispatcher) {
	b.dispatcher = d
}

// Dispatcher returns the dispatcher the service was registered with, nil before Register
func (b *Base) Dispatcher() *Dispatcher {
	return b.dispatcher
}
