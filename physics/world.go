package physics

import (
	"math"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/lixenwraith/yaa/vmath"
)

// CollisionHandler decides per contact whether the physical response is applied
// It may add or remove bodies, those changes take effect after the step
type CollisionHandler func(arb *Arbiter) bool

// StepStats counts what happened during the last step
type StepStats struct {
	Contacts   int // Pairs whose shapes touched
	Suppressed int // Contacts rejected by the handler
	Sensors    int // Contacts involving a sensor, never resolved
	Skipped    int // Pairs dropped because a body was removed earlier in the step
}

// World owns bodies and advances the simulation
// Not safe for concurrent use; all calls happen on the frame goroutine
type World struct {
	bodies []*Body
	grid   *SpatialGrid
	dirty  bool // Grid no longer reflects body positions

	handler    CollisionHandler
	iterations int

	stepping   bool
	pendingAdd []*Body
	stamp      uint64
	arbiters   []Arbiter
	stats      StepStats
}

// NewWorld creates a world whose broad phase covers bounds
func NewWorld(bounds vmath.Bounds, cellSize float64) *World {
	return &World{
		grid:       NewSpatialGrid(bounds, cellSize),
		iterations: 1,
	}
}

// SetCollisionHandler installs the single combined collision handler
func (w *World) SetCollisionHandler(h CollisionHandler) { w.handler = h }

// SetIterations sets how many impulse passes run per step, minimum 1
func (w *World) SetIterations(n int) { w.iterations = max(1, n) }

// Bodies returns the live bodies in insertion order
func (w *World) Bodies() []*Body { return w.bodies }

// Stats returns counters of the last step
func (w *World) Stats() StepStats { return w.stats }

// Add inserts a body; during a step the insertion is deferred until the step ends
func (w *World) Add(b *Body) error {
	if b.world != nil {
		return eris.Errorf("body of %v already in a world", b.entity)
	}
	b.world = w
	b.removed = false
	if w.stepping {
		// Removed and re-added within the same step: still in place, nothing to defer
		if !slices.Contains(w.bodies, b) {
			w.pendingAdd = append(w.pendingAdd, b)
		}
		return nil
	}
	w.bodies = append(w.bodies, b)
	w.dirty = true
	return nil
}

// Remove drops a body; during a step it is flagged and skipped, then removed after the step
func (w *World) Remove(b *Body) {
	if b.world != w {
		return
	}
	b.removed = true
	b.world = nil
	if w.stepping {
		return
	}
	w.compact()
}

// compact drops flagged bodies, keeping insertion order
func (w *World) compact() {
	w.bodies = slices.DeleteFunc(w.bodies, func(b *Body) bool { return b.removed })
	w.dirty = true
}

// Step advances the world by dt seconds
// Order: integrate velocity, integrate position, detect, handler, resolve, flush deferred changes
func (w *World) Step(dt float64) {
	w.stepping = true
	w.stats = StepStats{}

	for _, b := range w.bodies {
		b.vel = b.vel.Add(b.force.Scale(b.invMass * dt)).ClampLen(b.maxSpeed)
		b.angVel += b.torque * b.invInertia * dt
		b.pos = b.pos.Add(b.vel.Scale(dt))
		b.angle += b.angVel * dt
		b.shape.update(b.pos, b.angle)
	}

	w.rebuild()
	w.arbiters = w.arbiters[:0]
	w.grid.Pairs(func(a, b *Body) {
		if !a.filter.Accepts(b.filter) {
			return
		}
		var arb Arbiter
		if !detect(a, b, &arb) {
			return
		}
		w.arbiters = append(w.arbiters, arb)
	})

	// Handler runs once per contact, before any response
	accepted := w.arbiters[:0]
	for i := range w.arbiters {
		arb := &w.arbiters[i]
		if arb.A.removed || arb.B.removed {
			w.stats.Skipped++
			continue
		}
		w.stats.Contacts++
		ok := true
		if w.handler != nil {
			ok = w.handler(arb)
		}
		switch {
		case !ok:
			w.stats.Suppressed++
		case arb.Sensor():
			w.stats.Sensors++
		default:
			accepted = append(accepted, *arb)
		}
	}

	for range w.iterations {
		for i := range accepted {
			if accepted[i].A.removed || accepted[i].B.removed {
				continue
			}
			resolve(&accepted[i])
		}
	}

	for _, b := range w.bodies {
		b.ResetForces()
	}

	w.stepping = false
	w.flush()
}

// flush applies adds and removes requested during the step
func (w *World) flush() {
	w.compact()
	for _, b := range w.pendingAdd {
		if b.removed {
			continue
		}
		w.bodies = append(w.bodies, b)
	}
	clear(w.pendingAdd)
	w.pendingAdd = w.pendingAdd[:0]
	w.dirty = true
}

// rebuild re-inserts every body into the grid
func (w *World) rebuild() {
	w.grid.Clear()
	for _, b := range w.bodies {
		if !b.removed {
			w.grid.Insert(b)
		}
	}
	w.dirty = false
}

func (w *World) nextStamp() uint64 {
	if w.dirty {
		w.rebuild()
	}
	w.stamp++
	return w.stamp
}

// QueryBB returns bodies whose shape intersects box and passes filter
func (w *World) QueryBB(box vmath.AABB, filter Filter) []*Body {
	var out []*Body
	boxShape := boxPolygon(box)
	w.grid.Query(box, w.nextStamp(), func(b *Body) {
		if b.removed || !filter.Accepts(b.filter) || !b.shape.bb.Overlaps(box) {
			return
		}
		if shapeHitsBox(&b.shape, box, &boxShape) {
			out = append(out, b)
		}
	})
	w.sortByInsertion(out)
	return out
}

// QueryPoint returns bodies containing p, in insertion order
func (w *World) QueryPoint(p vmath.Vec2, filter Filter) []*Body {
	var out []*Body
	w.grid.Query(vmath.AABB{Min: p, Max: p}, w.nextStamp(), func(b *Body) {
		if b.removed || !filter.Accepts(b.filter) {
			return
		}
		if b.shape.containsPoint(p) {
			out = append(out, b)
		}
	})
	w.sortByInsertion(out)
	return out
}

// SegmentHit is a body crossed by a segment query
// Alpha is the fraction along the segment of the first intersection
type SegmentHit struct {
	Body   *Body
	Alpha  float64
	Point  vmath.Vec2
	Normal vmath.Vec2
}

// QuerySegment returns bodies crossed by segment a->b sorted by distance from a
func (w *World) QuerySegment(a, b vmath.Vec2, filter Filter) []SegmentHit {
	var out []SegmentHit
	w.grid.Query(vmath.SegmentBox(a, b), w.nextStamp(), func(body *Body) {
		if body.removed || !filter.Accepts(body.filter) {
			return
		}
		if hit, ok := segmentShape(&body.shape, a, b); ok {
			hit.Body = body
			out = append(out, hit)
		}
	})
	slices.SortStableFunc(out, func(x, y SegmentHit) int {
		switch {
		case x.Alpha < y.Alpha:
			return -1
		case x.Alpha > y.Alpha:
			return 1
		}
		return 0
	})
	return out
}

func (w *World) sortByInsertion(bodies []*Body) {
	if len(bodies) < 2 {
		return
	}
	order := make(map[*Body]int, len(w.bodies))
	for i, b := range w.bodies {
		order[b] = i
	}
	slices.SortFunc(bodies, func(x, y *Body) int { return order[x] - order[y] })
}

func boxPolygon(box vmath.AABB) Shape {
	s, _ := newPolygon([]vmath.Vec2{
		box.Min,
		vmath.V(box.Max.X, box.Min.Y),
		box.Max,
		vmath.V(box.Min.X, box.Max.Y),
	})
	if s.Kind == ShapePolygon {
		s.update(vmath.Zero, 0)
	}
	return s
}

// shapeHitsBox is an exact intersection test, bb overlap already holds
func shapeHitsBox(s *Shape, box vmath.AABB, boxShape *Shape) bool {
	if s.Kind == ShapeCircle {
		closest := vmath.V(
			vmath.Clamp(s.center.X, box.Min.X, box.Max.X),
			vmath.Clamp(s.center.Y, box.Min.Y, box.Max.Y),
		)
		return closest.DistSq(s.center) <= s.Radius*s.Radius
	}
	if len(boxShape.world) == 0 {
		// Degenerate box (zero width or height), fall back to a bb test
		return true
	}
	if _, _, ok := minOverlap(s, boxShape); !ok {
		return false
	}
	_, _, ok := minOverlap(boxShape, s)
	return ok
}

// segmentShape intersects segment a->b with s
func segmentShape(s *Shape, a, b vmath.Vec2) (SegmentHit, bool) {
	d := b.Sub(a)
	if s.Kind == ShapeCircle {
		return segmentCircle(s.center, s.Radius, a, d)
	}

	// Cyrus-Beck clipping against the convex polygon
	tEnter, tExit := 0.0, 1.0
	enterN := vmath.Zero
	for i, n := range s.normals {
		denom := n.Dot(d)
		dist := n.Dot(a.Sub(s.world[i]))
		if denom == 0 {
			if dist > 0 {
				return SegmentHit{}, false
			}
			continue
		}
		t := -dist / denom
		if denom < 0 {
			if t > tEnter {
				tEnter, enterN = t, n
			}
		} else if t < tExit {
			tExit = t
		}
		if tEnter > tExit {
			return SegmentHit{}, false
		}
	}
	return SegmentHit{Alpha: tEnter, Point: a.Add(d.Scale(tEnter)), Normal: enterN}, true
}

func segmentCircle(c vmath.Vec2, r float64, a, d vmath.Vec2) (SegmentHit, bool) {
	f := a.Sub(c)
	if f.LenSq() <= r*r {
		// Starts inside
		return SegmentHit{Alpha: 0, Point: a, Normal: f.Normalize()}, true
	}
	qa := d.Dot(d)
	if qa == 0 {
		return SegmentHit{}, false
	}
	qb := 2 * f.Dot(d)
	qc := f.Dot(f) - r*r
	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		return SegmentHit{}, false
	}
	t := (-qb - math.Sqrt(disc)) / (2 * qa)
	if t < 0 || t > 1 {
		return SegmentHit{}, false
	}
	p := a.Add(d.Scale(t))
	return SegmentHit{Alpha: t, Point: p, Normal: p.Sub(c).Normalize()}, true
}
