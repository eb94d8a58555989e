package service

import (
	"reflect"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

var (
	ErrDuplicateService = eris.New("service already registered")
	ErrServiceNotFound  = eris.New("service not found")
	ErrBadPayload       = eris.New("bad event payload")
)

// binding is one cached handler of a broadcast
type binding struct {
	name    string
	handler Handler
}

// Dispatcher owns one instance per service type and fans broadcasts out to them
// Single-threaded: all calls happen on the frame goroutine
type Dispatcher struct {
	services map[reflect.Type]Service
	order    []Service           // Registration order, stable sort input
	cache    map[Event][]binding // Built lazily per event name
	log      zerolog.Logger
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		services: make(map[reflect.Type]Service),
		cache:    make(map[Event][]binding),
		log:      log,
	}
}

// Register adds a service instance keyed by its concrete type
// Clears the broadcast cache so later broadcasts see the new service
func (d *Dispatcher) Register(svc Service) error {
	if svc == nil {
		return eris.New("nil service")
	}

	t := reflect.TypeOf(svc)
	if _, exists := d.services[t]; exists {
		return eris.Wrapf(ErrDuplicateService, "type %s", t)
	}

	d.services[t] = svc
	d.order = append(d.order, svc)
	clear(d.cache) // Invalidate cached handler lists

	if a, ok := svc.(Attacher); ok {
		a.Attach(d)
	}

	d.log.Info().Str("service", t.String()).Int("priority", svc.Priority()).Msg("service registered")
	return nil
}

// Lookup retrieves a service by its concrete type
func (d *Dispatcher) Lookup(t reflect.Type) (Service, error) {
	svc, ok := d.services[t]
	if !ok {
		return nil, eris.Wrapf(ErrServiceNotFound, "type %s", t)
	}
	return svc, nil
}

// Get retrieves the registered service of type T
func Get[T Service](d *Dispatcher) (T, error) {
	var zero T
	svc, err := d.Lookup(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, eris.Wrapf(ErrServiceNotFound, "type mismatch, got %T", svc)
	}
	return typed, nil
}

// MustGet retrieves the service of type T
// Panics if the service is not registered, use for wiring that is fixed at startup
func MustGet[T Service](d *Dispatcher) T {
	svc, err := Get[T](d)
	if err != nil {
		panic(err)
	}
	return svc
}

// Services returns registered services in registration order
func (d *Dispatcher) Services() []Service {
	out := make([]Service, len(d.order))
	copy(out, d.order)
	return out
}

// Broadcast calls every subscribed handler of ev in ascending priority order
// The first handler error aborts the remaining handlers of this call
func (d *Dispatcher) Broadcast(ev Event, args ...any) error {
	bindings, ok := d.cache[ev]
	if !ok {
		bindings = d.build(ev)
		d.cache[ev] = bindings
	}

	for _, b := range bindings {
		if err := b.handler(args...); err != nil {
			return eris.Wrapf(err, "%s handler of %s", ev, b.name)
		}
	}
	return nil
}

// Subscribers returns the type names bound to ev, in invocation order
func (d *Dispatcher) Subscribers(ev Event) []string {
	bindings, ok := d.cache[ev]
	if !ok {
		bindings = d.build(ev)
		d.cache[ev] = bindings
	}
	names := make([]string, len(bindings))
	for i, b := range bindings {
		names[i] = b.name
	}
	return names
}

// build scans current services and returns the priority-sorted handler list
// Stable sort keeps registration order among equal priorities
func (d *Dispatcher) build(ev Event) []binding {
	candidates := make([]Service, 0, len(d.order))
	for _, svc := range d.order {
		if h, ok := svc.Handlers()[ev]; ok && h != nil {
			candidates = append(candidates, svc)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority() < candidates[j].Priority()
	})

	bindings := make([]binding, len(candidates))
	for i, svc := range candidates {
		bindings[i] = binding{
			name:    reflect.TypeOf(svc).String(),
			handler: svc.Handlers()[ev],
		}
	}

	d.log.Debug().Str("event", string(ev)).Int("handlers", len(bindings)).Msg("broadcast cache built")
	return bindings
}
