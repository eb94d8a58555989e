package physics

import (
	"math"

	"github.com/lixenwraith/yaa/entity"
	"github.com/lixenwraith/yaa/vmath"
)

// Arbiter is one detected contact pair
// Normal points from A towards B, Depth is the largest penetration
type Arbiter struct {
	A, B   *Body
	Normal vmath.Vec2
	Depth  float64
	Points []entity.ContactPoint
}

// Sensor reports whether either side is a sensor
func (a *Arbiter) Sensor() bool { return a.A.sensor || a.B.sensor }

// ContactFor returns the contact as seen from body b
func (a *Arbiter) ContactFor(b *Body) entity.Contact {
	c := entity.Contact{Points: a.Points, Normal: a.Normal, Sensor: a.Sensor()}
	if b == a.B {
		return c.Flip()
	}
	return c
}

// detect runs the narrow phase for a pair, returning false when shapes do not touch
func detect(a, b *Body, arb *Arbiter) bool {
	sa, sb := &a.shape, &b.shape
	switch {
	case sa.Kind == ShapeCircle && sb.Kind == ShapeCircle:
		return circleCircle(a, b, arb)
	case sa.Kind == ShapeCircle && sb.Kind == ShapePolygon:
		return circlePolygon(a, b, arb)
	case sa.Kind == ShapePolygon && sb.Kind == ShapeCircle:
		if !circlePolygon(b, a, arb) {
			return false
		}
		// Restore A/B order, the normal must point from A to B
		arb.A, arb.B = a, b
		arb.Normal = arb.Normal.Neg()
		return true
	default:
		return polygonPolygon(a, b, arb)
	}
}

func circleCircle(a, b *Body, arb *Arbiter) bool {
	ra, rb := a.shape.Radius, b.shape.Radius
	d := b.pos.Sub(a.pos)
	distSq := d.LenSq()
	if distSq >= (ra+rb)*(ra+rb) {
		return false
	}

	dist := math.Sqrt(distSq)
	n := vmath.V(1, 0)
	if dist > 0 {
		n = d.Scale(1 / dist)
	}
	depth := ra + rb - dist

	*arb = Arbiter{
		A:      a,
		B:      b,
		Normal: n,
		Depth:  depth,
		Points: []entity.ContactPoint{{Position: a.pos.Add(n.Scale(ra - depth/2)), Depth: depth}},
	}
	return true
}

// circlePolygon fills arb with A = circle, B = polygon
func circlePolygon(c, p *Body, arb *Arbiter) bool {
	r := c.shape.Radius
	center := c.pos
	verts, normals := p.shape.world, p.shape.normals

	// Face of maximum separation
	best, face := math.Inf(-1), 0
	for i, n := range normals {
		s := n.Dot(center.Sub(verts[i]))
		if s > r {
			return false
		}
		if s > best {
			best, face = s, i
		}
	}

	var n vmath.Vec2 // From polygon towards circle
	var depth float64
	var point vmath.Vec2

	if best <= 0 {
		// Center inside polygon
		n = normals[face]
		depth = r - best
		point = center.Sub(n.Scale(best))
	} else {
		// Closest point on the boundary
		q, distSq := closestOnPolygon(center, verts)
		if distSq > r*r {
			return false
		}
		dist := math.Sqrt(distSq)
		if dist > 0 {
			n = center.Sub(q).Scale(1 / dist)
		} else {
			n = normals[face]
		}
		depth = r - dist
		point = q
	}

	*arb = Arbiter{
		A:      c,
		B:      p,
		Normal: n.Neg(),
		Depth:  depth,
		Points: []entity.ContactPoint{{Position: point, Depth: depth}},
	}
	return true
}

func closestOnPolygon(p vmath.Vec2, verts []vmath.Vec2) (vmath.Vec2, float64) {
	best, bestSq := verts[0], math.Inf(1)
	n := len(verts)
	for i := range verts {
		q := closestOnSegment(p, verts[i], verts[(i+1)%n])
		if d := q.DistSq(p); d < bestSq {
			best, bestSq = q, d
		}
	}
	return best, bestSq
}

func closestOnSegment(p, a, b vmath.Vec2) vmath.Vec2 {
	ab := b.Sub(a)
	lsq := ab.LenSq()
	if lsq == 0 {
		return a
	}
	t := vmath.Clamp(p.Sub(a).Dot(ab)/lsq, 0, 1)
	return a.Add(ab.Scale(t))
}

// polygonPolygon uses the separating axis test over both edge normal sets
func polygonPolygon(a, b *Body, arb *Arbiter) bool {
	depthA, nA, ok := minOverlap(&a.shape, &b.shape)
	if !ok {
		return false
	}
	depthB, nB, ok := minOverlap(&b.shape, &a.shape)
	if !ok {
		return false
	}

	n, depth := nA, depthA
	if depthB < depthA {
		n, depth = nB, depthB
	}
	if n.Dot(b.pos.Sub(a.pos)) < 0 {
		n = n.Neg()
	}

	var points []entity.ContactPoint
	for _, v := range b.shape.world {
		if a.shape.containsPoint(v) {
			points = append(points, entity.ContactPoint{Position: v, Depth: depth})
		}
	}
	for _, v := range a.shape.world {
		if b.shape.containsPoint(v) {
			points = append(points, entity.ContactPoint{Position: v, Depth: depth})
		}
	}
	if len(points) == 0 {
		// Edge crossing without a contained vertex
		mid := a.shape.bb.Center().Lerp(b.shape.bb.Center(), 0.5)
		points = append(points, entity.ContactPoint{Position: mid, Depth: depth})
	}

	*arb = Arbiter{A: a, B: b, Normal: n, Depth: depth, Points: points}
	return true
}

// minOverlap projects both shapes on the edge normals of s and returns the smallest overlap
func minOverlap(s, o *Shape) (float64, vmath.Vec2, bool) {
	best, bestN := math.Inf(1), vmath.Zero
	for _, n := range s.normals {
		minS, maxS := project(s.world, n)
		minO, maxO := project(o.world, n)
		overlap := math.Min(maxS, maxO) - math.Max(minS, minO)
		if overlap <= 0 {
			return 0, vmath.Zero, false
		}
		if overlap < best {
			best, bestN = overlap, n
		}
	}
	return best, bestN, true
}

func project(verts []vmath.Vec2, axis vmath.Vec2) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range verts {
		d := v.Dot(axis)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}

// resolve applies restitution and friction impulses, then positional correction
// Combined elasticity and friction are the product of both sides
func resolve(arb *Arbiter) {
	a, b := arb.A, arb.B
	n := arb.Normal
	e := a.elasticity * b.elasticity
	mu := a.friction * b.friction
	count := float64(len(arb.Points))

	for _, cp := range arb.Points {
		ra := cp.Position.Sub(a.pos)
		rb := cp.Position.Sub(b.pos)
		rv := b.velocityAt(rb).Sub(a.velocityAt(ra))

		vn := rv.Dot(n)
		if vn > 0 {
			continue // Separating
		}

		raN, rbN := ra.Cross(n), rb.Cross(n)
		kn := a.invMass + b.invMass + raN*raN*a.invInertia + rbN*rbN*b.invInertia
		if kn == 0 {
			continue
		}
		jn := -(1 + e) * vn / kn / count
		impulse := n.Scale(jn)
		a.ApplyImpulse(impulse.Neg(), ra)
		b.ApplyImpulse(impulse, rb)

		// Coulomb friction along the tangent
		rv = b.velocityAt(rb).Sub(a.velocityAt(ra))
		t := rv.Sub(n.Scale(rv.Dot(n))).Normalize()
		if t == vmath.Zero {
			continue
		}
		raT, rbT := ra.Cross(t), rb.Cross(t)
		kt := a.invMass + b.invMass + raT*raT*a.invInertia + rbT*rbT*b.invInertia
		if kt == 0 {
			continue
		}
		jt := vmath.Clamp(-rv.Dot(t)/kt/count, -jn*mu, jn*mu)
		friction := t.Scale(jt)
		a.ApplyImpulse(friction.Neg(), ra)
		b.ApplyImpulse(friction, rb)
	}

	correctPositions(arb)
}

// correctPositions pushes overlapping bodies apart to counter sinking
func correctPositions(arb *Arbiter) {
	const percent = 0.4
	const slop = 0.005

	if arb.Depth <= slop {
		return
	}
	a, b := arb.A, arb.B
	sum := a.invMass + b.invMass
	if sum == 0 {
		return
	}
	correction := arb.Normal.Scale((arb.Depth - slop) / sum * percent)
	a.pos = a.pos.Sub(correction.Scale(a.invMass))
	b.pos = b.pos.Add(correction.Scale(b.invMass))
	a.shape.update(a.pos, a.angle)
	b.shape.update(b.pos, b.angle)
}
