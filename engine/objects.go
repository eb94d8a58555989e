package engine

import (
	"slices"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/yaa/entity"
	"github.com/lixenwraith/yaa/service"
)

// ObjectsPriority places the lifecycle manager after the scheduler and before physics
const ObjectsPriority = 5

// Receiver method names understood by ObjectService
const (
	MethodAdd             = "add"
	MethodRemove          = "remove"
	MethodClear           = "clear"
	MethodToggleDebugDraw = "toggle_debug_draw"
)

var (
	ErrNotLive     = eris.New("entity was never added")
	ErrAlreadyLive = eris.New("entity already added")
)

// ObjectService owns the live entity collection
// Removal is two-phase: Remove marks, the next tick sweeps, then survivors update
type ObjectService struct {
	service.Base

	live    []*entity.Entity // Insertion order is update and draw order
	pending []*entity.Entity // Marked this frame, swept on next tick

	debugDraw bool
	canvas    entity.Canvas

	added, removed uint64
	log            zerolog.Logger
}

// NewObjectService creates an empty lifecycle manager
func NewObjectService(log zerolog.Logger) *ObjectService {
	return &ObjectService{
		log: log.With().Str("service", "objects").Logger(),
	}
}

func (o *ObjectService) Priority() int { return ObjectsPriority }

func (o *ObjectService) Handlers() service.Handlers {
	return service.Handlers{
		service.EventTick: service.OnTick(o.Tick),
		service.EventDraw: service.Bind0(o.Draw),
	}
}

// Add runs the entity's on_added hook, appends it and announces it to every service
func (o *ObjectService) Add(e *entity.Entity) (*entity.Entity, error) {
	switch e.State() {
	case entity.StateLive, entity.StatePending:
		return nil, eris.Wrapf(ErrAlreadyLive, "%s is %s", e, e.State())
	}

	// Live before the hook so on_added may remove its own entity
	o.live = append(o.live, e)
	e.SetState(entity.StateLive)
	if err := e.OnAdded(); err != nil {
		o.rollback(e)
		return nil, eris.Wrapf(err, "on_added of %s", e)
	}
	o.added++
	o.log.Debug().Stringer("entity", e).Int("live", len(o.live)).Msg("added")

	// Removed by its own on_added: services already saw the removal, skip the announcement
	if e.Removed() {
		return e, nil
	}

	if err := o.broadcast(service.EventObjectAdded, e); err != nil {
		return e, err
	}
	return e, nil
}

// rollback takes back a failed add, including a removal requested by the failing hook
func (o *ObjectService) rollback(e *entity.Entity) {
	o.live = slices.DeleteFunc(o.live, func(x *entity.Entity) bool { return x == e })
	if e.State() == entity.StatePending {
		o.pending = slices.DeleteFunc(o.pending, func(x *entity.Entity) bool { return x == e })
		o.removed--
	}
	e.SetState(entity.StateNew)
}

// AddNew constructs an entity with factory and adds it
func (o *ObjectService) AddNew(factory func() (*entity.Entity, error)) (*entity.Entity, error) {
	e, err := factory()
	if err != nil {
		return nil, eris.Wrap(err, "construct entity")
	}
	return o.Add(e)
}

// Remove marks e for removal, the live collection changes on the next tick
// Removing an already removed entity is a no-op
func (o *ObjectService) Remove(e *entity.Entity) error {
	switch e.State() {
	case entity.StatePending, entity.StateSwept:
		return nil
	case entity.StateNew:
		return eris.Wrapf(ErrNotLive, "%s", e)
	}

	// Mark first so hooks that remove again are absorbed
	e.SetState(entity.StatePending)
	o.pending = append(o.pending, e)
	o.removed++
	o.log.Debug().Stringer("entity", e).Msg("marked for removal")

	if err := e.OnRemoved(); err != nil {
		return eris.Wrapf(err, "on_removed of %s", e)
	}
	return o.broadcast(service.EventObjectRemoved, e)
}

// Clear removes every live entity
func (o *ObjectService) Clear() error {
	for _, e := range slices.Clone(o.live) {
		if err := o.Remove(e); err != nil {
			return err
		}
	}
	return nil
}

// Tick sweeps entities removed since the last tick, then updates the rest
func (o *ObjectService) Tick(dt float64) error {
	if len(o.pending) > 0 {
		o.live = slices.DeleteFunc(o.live, func(e *entity.Entity) bool {
			return e.State() == entity.StatePending
		})
		for _, e := range o.pending {
			e.SetState(entity.StateSwept)
		}
		clear(o.pending)
		o.pending = o.pending[:0]
	}

	// Entities added during update wait for the next tick
	n := len(o.live)
	for i := 0; i < n; i++ {
		e := o.live[i]
		if e.Removed() {
			continue
		}
		if err := e.Update(dt); err != nil {
			return eris.Wrapf(err, "update of %s", e)
		}
	}
	return nil
}

// Draw runs every live entity's debug draw hook when debug drawing is on
func (o *ObjectService) Draw() error {
	if !o.debugDraw || o.canvas == nil {
		return nil
	}
	for _, e := range o.live {
		if !e.Removed() {
			e.DebugDraw(o.canvas)
		}
	}
	return nil
}

func (o *ObjectService) SetDebugDraw(on bool)      { o.debugDraw = on }
func (o *ObjectService) DebugDraw() bool           { return o.debugDraw }
func (o *ObjectService) SetCanvas(c entity.Canvas) { o.canvas = c }

// Len returns the size of the live collection, pending entities included until swept
func (o *ObjectService) Len() int { return len(o.live) }

// Objects returns the live collection; callers must not modify it
func (o *ObjectService) Objects() []*entity.Entity { return o.live }

// Pending returns the number of entities waiting for the sweep
func (o *ObjectService) Pending() int { return len(o.pending) }

// Totals returns how many entities were added and removed since construction
func (o *ObjectService) Totals() (added, removed uint64) { return o.added, o.removed }

// HasMethod lets deferred messages and input bindings target the lifecycle manager
func (o *ObjectService) HasMethod(name string) bool {
	switch name {
	case MethodAdd, MethodRemove, MethodClear, MethodToggleDebugDraw:
		return true
	}
	return false
}

// Call dispatches a named method, add and remove take the entity as first argument
func (o *ObjectService) Call(name string, args ...any) error {
	switch name {
	case MethodClear:
		return o.Clear()
	case MethodToggleDebugDraw:
		if pressed, ok := firstBool(args); !ok || pressed {
			o.debugDraw = !o.debugDraw
		}
		return nil
	case MethodAdd, MethodRemove:
		if len(args) == 0 {
			return eris.Errorf("%s needs an entity", name)
		}
		e, ok := args[0].(*entity.Entity)
		if !ok {
			return eris.Errorf("%s: want *entity.Entity, got %T", name, args[0])
		}
		if name == MethodAdd {
			_, err := o.Add(e)
			return err
		}
		return o.Remove(e)
	}
	return eris.Wrapf(entity.ErrUnknownHook, "%s on objects", name)
}

func (o *ObjectService) broadcast(ev service.Event, e *entity.Entity) error {
	d := o.Dispatcher()
	if d == nil {
		return nil
	}
	return d.Broadcast(ev, e)
}

func firstBool(args []any) (bool, bool) {
	if len(args) == 0 {
		return false, false
	}
	b, ok := args[0].(bool)
	return b, ok
}
