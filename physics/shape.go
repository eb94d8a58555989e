package physics

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/lixenwraith/yaa/vmath"
)

var (
	ErrNoShape          = eris.New("neither radius nor points specified")
	ErrConflictingShape = eris.New("both radius and points specified")
	ErrBadPolygon       = eris.New("polygon must be convex with at least 3 points")
	ErrBadMass          = eris.New("mass must be positive")
)

// ShapeKind selects the collision geometry of a body
type ShapeKind uint8

const (
	ShapeCircle ShapeKind = iota
	ShapePolygon
)

func (k ShapeKind) String() string {
	if k == ShapeCircle {
		return "circle"
	}
	return "polygon"
}

// Shape is the collision geometry of exactly one body
// Local vertices are counter-clockwise in body space; world data is refreshed by update
type Shape struct {
	Kind   ShapeKind
	Radius float64

	local   []vmath.Vec2
	world   []vmath.Vec2
	normals []vmath.Vec2 // Outward edge normals in world space, normals[i] belongs to edge i -> i+1
	center  vmath.Vec2
	bb      vmath.AABB
}

func newCircle(radius float64) Shape {
	return Shape{Kind: ShapeCircle, Radius: radius}
}

// newPolygon validates and orients the vertex list
func newPolygon(points []vmath.Vec2) (Shape, error) {
	if len(points) < 3 {
		return Shape{}, eris.Wrapf(ErrBadPolygon, "got %d points", len(points))
	}

	local := make([]vmath.Vec2, len(points))
	copy(local, points)

	area := signedArea(local)
	if math.Abs(area) < 1e-12 {
		return Shape{}, eris.Wrap(ErrBadPolygon, "degenerate polygon")
	}
	if area < 0 {
		for i, j := 0, len(local)-1; i < j; i, j = i+1, j-1 {
			local[i], local[j] = local[j], local[i]
		}
	}
	if !isConvex(local) {
		return Shape{}, eris.Wrap(ErrBadPolygon, "polygon is not convex")
	}

	return Shape{
		Kind:    ShapePolygon,
		local:   local,
		world:   make([]vmath.Vec2, len(local)),
		normals: make([]vmath.Vec2, len(local)),
	}, nil
}

// Vertices returns the world-space polygon vertices, nil for circles
func (s *Shape) Vertices() []vmath.Vec2 { return s.world }

// Center returns the world-space position of the body origin
func (s *Shape) Center() vmath.Vec2 { return s.center }

// BB returns the world-space bounding box
func (s *Shape) BB() vmath.AABB { return s.bb }

// update recomputes world-space geometry for a body at pos with rotation angle
func (s *Shape) update(pos vmath.Vec2, angle float64) {
	s.center = pos
	if s.Kind == ShapeCircle {
		s.bb = vmath.BoxAround(pos, s.Radius)
		return
	}

	rot := vmath.ForAngle(angle)
	for i, v := range s.local {
		s.world[i] = pos.Add(vmath.V(v.X*rot.X-v.Y*rot.Y, v.X*rot.Y+v.Y*rot.X))
	}

	bb := vmath.AABB{Min: s.world[0], Max: s.world[0]}
	n := len(s.world)
	for i, w := range s.world {
		bb = bb.Union(vmath.AABB{Min: w, Max: w})
		edge := s.world[(i+1)%n].Sub(w)
		s.normals[i] = vmath.V(edge.Y, -edge.X).Normalize()
	}
	s.bb = bb
}

// containsPoint tests a world-space point against the shape
func (s *Shape) containsPoint(p vmath.Vec2) bool {
	if s.Kind == ShapeCircle {
		return p.DistSq(s.center) <= s.Radius*s.Radius
	}
	for i, n := range s.normals {
		if n.Dot(p.Sub(s.world[i])) > 0 {
			return false
		}
	}
	return true
}

// moment returns the moment of inertia about the body origin
func (s *Shape) moment(mass float64) float64 {
	if s.Kind == ShapeCircle {
		return mass * s.Radius * s.Radius / 2
	}
	return polygonMoment(mass, s.local)
}

// polygonMoment is the standard convex polygon inertia about the origin
func polygonMoment(mass float64, verts []vmath.Vec2) float64 {
	var num, den float64
	n := len(verts)
	for i := range verts {
		a, b := verts[i], verts[(i+1)%n]
		cross := math.Abs(a.Cross(b))
		num += cross * (a.Dot(a) + a.Dot(b) + b.Dot(b))
		den += cross
	}
	if den == 0 {
		return 0
	}
	return mass * num / (6 * den)
}

func signedArea(verts []vmath.Vec2) float64 {
	var sum float64
	n := len(verts)
	for i := range verts {
		sum += verts[i].Cross(verts[(i+1)%n])
	}
	return sum / 2
}

// isConvex expects counter-clockwise winding, collinear runs are allowed
// Turns must all be left and add up to one full turn, which rejects self-intersecting stars
func isConvex(verts []vmath.Vec2) bool {
	n := len(verts)
	var turning float64
	for i := range verts {
		a, b, c := verts[i], verts[(i+1)%n], verts[(i+2)%n]
		e1, e2 := b.Sub(a), c.Sub(b)
		cross := e1.Cross(e2)
		if cross < -1e-9 {
			return false
		}
		turning += math.Atan2(cross, e1.Dot(e2))
	}
	return math.Abs(turning-2*math.Pi) < 1e-6
}
