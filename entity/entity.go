package entity

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/lixenwraith/yaa/vmath"
)

var (
	ErrUnknownProperty  = eris.New("unknown property")
	ErrReadOnlyProperty = eris.New("read-only property")
	ErrUnknownHook      = eris.New("unknown hook")
)

// ID uniquely identifies an entity for its whole lifetime
type ID = uuid.UUID

// State tracks where an entity is in the add/remove cycle
// Transitions are driven by the lifecycle manager only
type State uint8

const (
	StateNew     State = iota // Constructed, never added
	StateLive                 // In the live collection
	StatePending              // Removed, waiting for the next sweep
	StateSwept                // Gone from the live collection
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateLive:
		return "live"
	case StatePending:
		return "pending"
	case StateSwept:
		return "swept"
	default:
		return "invalid"
	}
}

// Well-known hook names, usable with Call and as deferred message targets
const (
	HookOnAdded        = "on_added"
	HookOnRemoved      = "on_removed"
	HookUpdate         = "update"
	HookOnKeyPress     = "on_key_press"
	HookOnKeyRelease   = "on_key_release"
	HookOnAnimationEnd = "on_animation_end"
)

// Method is a named behavior callable by deferred messages and input bindings
type Method func(args ...any) error

// Hooks are the lifecycle callbacks an entity may supply, nil hooks are skipped
type Hooks struct {
	OnAdded   func() error
	OnRemoved func() error
	Update    func(dt float64) error
	DebugDraw func(c Canvas)

	// OnCollision returns whether the physical response should be applied
	// Nil accepts every contact
	OnCollision func(other *Entity, c Contact) bool

	OnKeyPress     func(key string) error
	OnKeyRelease   func(key string) error
	OnAnimationEnd func() error
}

// Component is an optional part of an entity, such as a drawable proxy or a rigid body
// Properties are registered on the owning entity when the component is attached
type Component interface {
	Properties() []Property
}

// Transformer is implemented by components that mirror a simulated transform
type Transformer interface {
	SetTransform(pos vmath.Vec2, angle float64)
}

// Entity is a game object composed of hooks, named methods, properties and components
type Entity struct {
	id    ID
	kind  string
	state State

	hooks      Hooks
	methods    map[string]Method
	props      map[string]*property
	components []Component
}

// New creates an entity of the given kind
func New(kind string, hooks Hooks) *Entity {
	return &Entity{
		id:      uuid.New(),
		kind:    kind,
		hooks:   hooks,
		methods: make(map[string]Method),
		props:   make(map[string]*property),
	}
}

func (e *Entity) ID() ID       { return e.id }
func (e *Entity) Kind() string { return e.kind }
func (e *Entity) State() State { return e.state }

// SetState is called by the lifecycle manager on add, remove and sweep
func (e *Entity) SetState(s State) { e.state = s }

// Removed reports whether the entity left the live set, swept or not
func (e *Entity) Removed() bool {
	return e.state == StatePending || e.state == StateSwept
}

// Hooks returns a pointer to the hook table so behavior can be installed after construction
func (e *Entity) Hooks() *Hooks { return &e.hooks }

// Attach adds a component and registers its properties
func (e *Entity) Attach(c Component) *Entity {
	e.components = append(e.components, c)
	for _, p := range c.Properties() {
		e.Register(p)
	}
	return e
}

// Components returns attached components in attach order
func (e *Entity) Components() []Component { return e.components }

// Find returns the first attached component of type T
func Find[T Component](e *Entity) (T, bool) {
	for _, c := range e.components {
		if t, ok := c.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// Define installs a named method, replacing any previous definition
func (e *Entity) Define(name string, m Method) *Entity {
	e.methods[name] = m
	return e
}

// HasMethod reports whether Call would find a target for name
func (e *Entity) HasMethod(name string) bool {
	if _, ok := e.methods[name]; ok {
		return true
	}
	switch name {
	case HookOnAdded:
		return e.hooks.OnAdded != nil
	case HookOnRemoved:
		return e.hooks.OnRemoved != nil
	case HookUpdate:
		return e.hooks.Update != nil
	case HookOnKeyPress:
		return e.hooks.OnKeyPress != nil
	case HookOnKeyRelease:
		return e.hooks.OnKeyRelease != nil
	case HookOnAnimationEnd:
		return e.hooks.OnAnimationEnd != nil
	}
	return false
}

// Call invokes a named method, falling back to the well-known hooks
func (e *Entity) Call(name string, args ...any) error {
	if m, ok := e.methods[name]; ok {
		return m(args...)
	}

	switch name {
	case HookOnAdded:
		if e.hooks.OnAdded != nil {
			return e.hooks.OnAdded()
		}
	case HookOnRemoved:
		if e.hooks.OnRemoved != nil {
			return e.hooks.OnRemoved()
		}
	case HookUpdate:
		if e.hooks.Update != nil {
			dt, err := argAt[float64](args, 0)
			if err != nil {
				return err
			}
			return e.hooks.Update(dt)
		}
	case HookOnKeyPress, HookOnKeyRelease:
		fn := e.hooks.OnKeyPress
		if name == HookOnKeyRelease {
			fn = e.hooks.OnKeyRelease
		}
		if fn != nil {
			key, err := argAt[string](args, 0)
			if err != nil {
				return err
			}
			return fn(key)
		}
	case HookOnAnimationEnd:
		if e.hooks.OnAnimationEnd != nil {
			return e.hooks.OnAnimationEnd()
		}
	}
	return eris.Wrapf(ErrUnknownHook, "%s on %s", name, e)
}

// OnAdded runs the on_added hook
func (e *Entity) OnAdded() error {
	if e.hooks.OnAdded == nil {
		return nil
	}
	return e.hooks.OnAdded()
}

// OnRemoved runs the on_removed hook
func (e *Entity) OnRemoved() error {
	if e.hooks.OnRemoved == nil {
		return nil
	}
	return e.hooks.OnRemoved()
}

// Update runs the update hook
func (e *Entity) Update(dt float64) error {
	if e.hooks.Update == nil {
		return nil
	}
	return e.hooks.Update(dt)
}

// DebugDraw runs the debug draw hook
func (e *Entity) DebugDraw(c Canvas) {
	if e.hooks.DebugDraw != nil {
		e.hooks.DebugDraw(c)
	}
}

// Collide asks the entity whether a contact with other is accepted
func (e *Entity) Collide(other *Entity, c Contact) bool {
	if e.hooks.OnCollision == nil {
		return true
	}
	return e.hooks.OnCollision(other, c)
}

// OnAnimationEnd runs the animation end hook
func (e *Entity) OnAnimationEnd() error {
	if e.hooks.OnAnimationEnd == nil {
		return nil
	}
	return e.hooks.OnAnimationEnd()
}

func (e *Entity) String() string {
	return e.kind + "#" + e.id.String()[:8]
}

func argAt[T any](args []any, i int) (T, error) {
	var zero T
	if i >= len(args) {
		return zero, eris.Errorf("missing argument %d", i)
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, eris.Errorf("argument %d: want %T, got %T", i, zero, args[i])
	}
	return v, nil
}
