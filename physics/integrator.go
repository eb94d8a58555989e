package physics

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/yaa/entity"
	"github.com/lixenwraith/yaa/service"
	"github.com/lixenwraith/yaa/vmath"
)

// Priority of the Integrator in broadcasts, after the scheduler and the lifecycle manager
const Priority = 10

// MethodToggleDebugDraw is the receiver method name bound to the debug draw key
const MethodToggleDebugDraw = "toggle_debug_draw"

// Counters accumulates contact statistics since construction
type Counters struct {
	Contacts   uint64
	Suppressed uint64
	Skipped    uint64 // Pairs dropped because a participant was already removed
}

// Integrator is the service that owns the physics world
// It steps on every tick, mirrors body transforms into other components and wraps positions
type Integrator struct {
	service.Base

	world    *World
	bounds   vmath.Bounds
	physical []*entity.Entity
	bodies   map[*entity.Entity]*Body

	debugDraw bool
	canvas    entity.Canvas

	counters    Counters
	stepSkipped int
	log         zerolog.Logger
}

// NewIntegrator creates the physics service for a toroidal world of the given bounds
func NewIntegrator(bounds vmath.Bounds, cellSize float64, log zerolog.Logger) *Integrator {
	p := &Integrator{
		world:  NewWorld(bounds, cellSize),
		bounds: bounds,
		bodies: make(map[*entity.Entity]*Body),
		log:    log.With().Str("service", "physics").Logger(),
	}
	p.world.SetCollisionHandler(p.onCollision)
	return p
}

func (p *Integrator) Priority() int { return Priority }

func (p *Integrator) Handlers() service.Handlers {
	return service.Handlers{
		service.EventTick:          service.OnTick(p.Step),
		service.EventDraw:          service.Bind0(p.draw),
		service.EventObjectAdded:   service.Bind1(p.onObjectAdded),
		service.EventObjectRemoved: service.Bind1(p.onObjectRemoved),
	}
}

// World exposes the underlying world
func (p *Integrator) World() *World { return p.world }

// Bounds returns the wrap-around bounds
func (p *Integrator) Bounds() vmath.Bounds { return p.bounds }

// Counters returns accumulated contact statistics
func (p *Integrator) Counters() Counters { return p.counters }

// Len returns the number of physical entities
func (p *Integrator) Len() int { return len(p.physical) }

// Entities returns physical entities in registration order
func (p *Integrator) Entities() []*entity.Entity { return p.physical }

// SetCanvas sets the target of physics debug drawing
func (p *Integrator) SetCanvas(c entity.Canvas) { p.canvas = c }

// DebugDraw reports whether shape outlines are drawn
func (p *Integrator) DebugDraw() bool { return p.debugDraw }

// ToggleDebugDraw flips debug drawing on key press, releases are ignored
func (p *Integrator) ToggleDebugDraw(pressed bool) {
	if pressed {
		p.debugDraw = !p.debugDraw
	}
}

// HasMethod lets input bindings and deferred messages target the integrator
func (p *Integrator) HasMethod(name string) bool {
	return name == MethodToggleDebugDraw
}

// Call dispatches a named method
func (p *Integrator) Call(name string, args ...any) error {
	if name != MethodToggleDebugDraw {
		return eris.Wrapf(entity.ErrUnknownHook, "%s on physics", name)
	}
	pressed := true
	if len(args) > 0 {
		if b, ok := args[0].(bool); ok {
			pressed = b
		}
	}
	p.ToggleDebugDraw(pressed)
	return nil
}

// Step advances the world, then wraps and syncs every physical entity
func (p *Integrator) Step(dt float64) error {
	p.stepSkipped = 0
	p.world.Step(dt)

	// Skipped pairs reach the world as rejections, keep them out of Suppressed
	stats := p.world.Stats()
	p.counters.Contacts += uint64(stats.Contacts - p.stepSkipped)
	p.counters.Suppressed += uint64(stats.Suppressed - p.stepSkipped)
	p.counters.Skipped += uint64(p.stepSkipped + stats.Skipped)

	for _, e := range p.physical {
		b := p.bodies[e]
		if p.bounds.Valid() {
			if wrapped := p.bounds.Wrap(b.pos); wrapped != b.pos {
				b.SetPosition(wrapped)
			}
		}
		syncTransform(e, b)
	}
	return nil
}

// syncTransform mirrors the body transform into every other transform-aware component
func syncTransform(e *entity.Entity, b *Body) {
	for _, c := range e.Components() {
		if t, ok := c.(entity.Transformer); ok {
			t.SetTransform(b.pos, b.angle)
		}
	}
}

// onCollision calls both predicates unconditionally and accepts only if both agree
func (p *Integrator) onCollision(arb *Arbiter) bool {
	ea, eb := arb.A.entity, arb.B.entity
	if ea == nil || eb == nil {
		return true
	}
	if ea.Removed() || eb.Removed() {
		p.stepSkipped++
		p.log.Warn().Stringer("a", ea).Stringer("b", eb).Msg("contact with removed entity skipped")
		return false
	}

	okA := ea.Collide(eb, arb.ContactFor(arb.A))
	okB := eb.Collide(ea, arb.ContactFor(arb.B))
	return okA && okB
}

func (p *Integrator) onObjectAdded(e *entity.Entity) error {
	b, ok := BodyOf(e)
	if !ok {
		return nil
	}
	if err := p.world.Add(b); err != nil {
		return err
	}
	p.physical = append(p.physical, e)
	p.bodies[e] = b
	syncTransform(e, b)
	p.log.Debug().Stringer("entity", e).Str("shape", b.shape.Kind.String()).Msg("body added")
	return nil
}

func (p *Integrator) onObjectRemoved(e *entity.Entity) error {
	b, ok := p.bodies[e]
	if !ok {
		return nil
	}
	p.world.Remove(b)
	delete(p.bodies, e)
	for i, o := range p.physical {
		if o == e {
			p.physical = append(p.physical[:i], p.physical[i+1:]...)
			break
		}
	}
	p.log.Debug().Stringer("entity", e).Msg("body removed")
	return nil
}

func (p *Integrator) draw() error {
	if !p.debugDraw || p.canvas == nil {
		return nil
	}
	for _, b := range p.world.Bodies() {
		DrawShape(p.canvas, b)
	}
	return nil
}

// DrawShape outlines a body's shape, circles get a radius line showing rotation
func DrawShape(c entity.Canvas, b *Body) {
	if b.shape.Kind == ShapePolygon {
		c.Polygon(b.shape.world)
		return
	}
	c.Circle(b.pos, b.shape.Radius)
	c.Line(b.pos, b.pos.Add(b.Rotation().Scale(b.shape.Radius)))
}

// Query results are owning entities, bodies without an entity are left out

// BBQuery returns entities whose shape intersects box
func (p *Integrator) BBQuery(box vmath.AABB, filter Filter) []*entity.Entity {
	return owners(p.world.QueryBB(box, filter))
}

// PointQuery returns every entity containing point
func (p *Integrator) PointQuery(point vmath.Vec2, filter Filter) []*entity.Entity {
	return owners(p.world.QueryPoint(point, filter))
}

// PointQueryFirst returns the first entity containing point
func (p *Integrator) PointQueryFirst(point vmath.Vec2, filter Filter) (*entity.Entity, bool) {
	es := p.PointQuery(point, filter)
	if len(es) == 0 {
		return nil, false
	}
	return es[0], true
}

// SegmentQuery returns every entity crossed by the segment, nearest first
func (p *Integrator) SegmentQuery(start, end vmath.Vec2, filter Filter) []*entity.Entity {
	hits := p.world.QuerySegment(start, end, filter)
	out := make([]*entity.Entity, 0, len(hits))
	for _, h := range hits {
		if h.Body.entity != nil {
			out = append(out, h.Body.entity)
		}
	}
	return out
}

// SegmentQueryFirst returns the nearest entity crossed by the segment with hit details
func (p *Integrator) SegmentQueryFirst(start, end vmath.Vec2, filter Filter) (*entity.Entity, SegmentHit, bool) {
	for _, h := range p.world.QuerySegment(start, end, filter) {
		if h.Body.entity != nil {
			return h.Body.entity, h, true
		}
	}
	return nil, SegmentHit{}, false
}

func owners(bodies []*Body) []*entity.Entity {
	out := make([]*entity.Entity, 0, len(bodies))
	for _, b := range bodies {
		if b.entity != nil {
			out = append(out, b.entity)
		}
	}
	return out
}
