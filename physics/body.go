package physics

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/lixenwraith/yaa/entity"
	"github.com/lixenwraith/yaa/vmath"
)

// AllLayers matches every layer bit
const AllLayers = ^uint32(0)

// Filter decides which shapes may touch
// Two shapes collide when they share a layer bit and are not in the same non-zero group
type Filter struct {
	Group  uint32
	Layers uint32
}

// DefaultFilter has no group and all layers
var DefaultFilter = Filter{Group: 0, Layers: AllLayers}

// Accepts reports whether shapes with filters f and o can interact
func (f Filter) Accepts(o Filter) bool {
	if f.Layers&o.Layers == 0 {
		return false
	}
	return f.Group == 0 || f.Group != o.Group
}

// Params describes a physical body at construction
// Exactly one of Radius or Points must be set
type Params struct {
	Radius float64      // Circle radius, 0 when unused
	Points []vmath.Vec2 // Convex polygon in body space, nil when unused

	Mass     float64
	Scale    float64 // Multiplies mass, radius and vertices
	MaxSpeed float64 // Velocity cap applied every step, 0 disables

	Filter     Filter
	Sensor     bool
	Elasticity float64
	Friction   float64

	Position vmath.Vec2
	Velocity vmath.Vec2
	Angle    float64
}

// DefaultParams returns the defaults every physical entity starts from
func DefaultParams() Params {
	return Params{
		Mass:       1,
		Scale:      1,
		MaxSpeed:   200,
		Filter:     DefaultFilter,
		Elasticity: 1,
		Friction:   1,
	}
}

// Body is a rigid body with one shape, owned by a World once added
type Body struct {
	entity *entity.Entity
	world  *World
	shape  Shape

	mass, invMass       float64
	inertia, invInertia float64
	maxSpeed            float64

	pos, vel, force vmath.Vec2
	angle, angVel   float64
	torque          float64

	filter     Filter
	sensor     bool
	elasticity float64
	friction   float64

	removed bool   // Set when removed mid-step, pairs involving it are skipped
	stamp   uint64 // Query dedup marker
}

// NewBody builds a body from p and attaches it to e as a component
// e may be nil for bodies not owned by an entity
func NewBody(e *entity.Entity, p Params) (*Body, error) {
	if p.Scale <= 0 {
		return nil, eris.Errorf("scale must be positive, got %v", p.Scale)
	}
	mass := p.Mass * p.Scale
	if !(mass > 0) || math.IsInf(mass, 0) {
		return nil, eris.Wrapf(ErrBadMass, "mass %v", mass)
	}

	var shape Shape
	switch {
	case p.Radius > 0 && len(p.Points) > 0:
		return nil, ErrConflictingShape
	case p.Radius > 0:
		shape = newCircle(p.Radius * p.Scale)
	case len(p.Points) > 0:
		scaled := make([]vmath.Vec2, len(p.Points))
		for i, v := range p.Points {
			scaled[i] = v.Scale(p.Scale)
		}
		var err error
		if shape, err = newPolygon(scaled); err != nil {
			return nil, err
		}
	default:
		return nil, ErrNoShape
	}

	b := &Body{
		entity:     e,
		shape:      shape,
		mass:       mass,
		invMass:    1 / mass,
		maxSpeed:   p.MaxSpeed,
		pos:        p.Position,
		vel:        p.Velocity,
		angle:      p.Angle,
		filter:     p.Filter,
		sensor:     p.Sensor,
		elasticity: p.Elasticity,
		friction:   p.Friction,
	}
	b.inertia = shape.moment(mass)
	if b.inertia > 0 {
		b.invInertia = 1 / b.inertia
	}
	b.shape.update(b.pos, b.angle)

	if e != nil {
		e.Attach(b)
	}
	return b, nil
}

// Entity returns the owning entity, the back-reference used for collision dispatch
func (b *Body) Entity() *entity.Entity { return b.entity }

func (b *Body) Shape() *Shape            { return &b.shape }
func (b *Body) Mass() float64            { return b.mass }
func (b *Body) Moment() float64          { return b.inertia }
func (b *Body) MaxSpeed() float64        { return b.maxSpeed }
func (b *Body) Position() vmath.Vec2     { return b.pos }
func (b *Body) Velocity() vmath.Vec2     { return b.vel }
func (b *Body) Angle() float64           { return b.angle }
func (b *Body) AngularVelocity() float64 { return b.angVel }
func (b *Body) Filter() Filter           { return b.filter }
func (b *Body) Sensor() bool             { return b.sensor }
func (b *Body) Elasticity() float64      { return b.elasticity }
func (b *Body) Friction() float64        { return b.friction }

// Rotation returns the unit vector of the body angle
func (b *Body) Rotation() vmath.Vec2 { return vmath.ForAngle(b.angle) }

// SetPosition moves the body and refreshes its shape
func (b *Body) SetPosition(p vmath.Vec2) {
	b.pos = p
	b.refresh()
}

func (b *Body) SetVelocity(v vmath.Vec2) { b.vel = v }

func (b *Body) SetAngle(a float64) {
	b.angle = a
	b.refresh()
}

// refresh recomputes world geometry and invalidates the owning world's index
func (b *Body) refresh() {
	b.shape.update(b.pos, b.angle)
	if b.world != nil {
		b.world.dirty = true
	}
}

func (b *Body) SetAngularVelocity(w float64) { b.angVel = w }

// ApplyForce accumulates a force at the center of mass until the next step
func (b *Body) ApplyForce(f vmath.Vec2) {
	b.force = b.force.Add(f)
}

// ApplyForceAt accumulates a force applied at a world-space point, adding torque
func (b *Body) ApplyForceAt(f, point vmath.Vec2) {
	b.force = b.force.Add(f)
	b.torque += point.Sub(b.pos).Cross(f)
}

// ApplyImpulse changes velocity immediately, r is relative to the body origin
func (b *Body) ApplyImpulse(j, r vmath.Vec2) {
	b.vel = b.vel.Add(j.Scale(b.invMass))
	b.angVel += b.invInertia * r.Cross(j)
}

// ResetForces clears accumulated force and torque
func (b *Body) ResetForces() {
	b.force = vmath.Zero
	b.torque = 0
}

// velocityAt returns the velocity of a point at offset r from the origin
func (b *Body) velocityAt(r vmath.Vec2) vmath.Vec2 {
	return b.vel.Add(vmath.CrossScalar(b.angVel, r))
}

// Properties implements entity.Component
func (b *Body) Properties() []entity.Property {
	return []entity.Property{
		{Name: "position", Get: entity.Getter(b.Position), Set: entity.Setter(b.SetPosition)},
		{Name: "velocity", Get: entity.Getter(b.Velocity), Set: entity.Setter(b.SetVelocity)},
		{Name: "angle", Get: entity.Getter(b.Angle), Set: entity.Setter(b.SetAngle)},
		{Name: "angular_velocity", Get: entity.Getter(b.AngularVelocity), Set: entity.Setter(b.SetAngularVelocity)},
	}
}

// BodyOf returns the body attached to e
func BodyOf(e *entity.Entity) (*Body, bool) {
	return entity.Find[*Body](e)
}
