package entity

import "github.com/lixenwraith/yaa/vmath"

// Canvas receives debug geometry in world coordinates
type Canvas interface {
	Line(a, b vmath.Vec2)
	Circle(center vmath.Vec2, radius float64)
	Polygon(points []vmath.Vec2)
	Text(at vmath.Vec2, s string)
}

// ContactPoint is one point of a contact manifold
type ContactPoint struct {
	Position vmath.Vec2
	Depth    float64 // Penetration, positive when overlapping
}

// Contact describes a collision between two entities as seen from the receiver
// Normal points from the receiver towards the other entity
type Contact struct {
	Points []ContactPoint
	Normal vmath.Vec2
	Sensor bool // At least one side is a sensor, no response will follow
}

// Flip returns the contact as seen from the other participant
func (c Contact) Flip() Contact {
	c.Normal = c.Normal.Neg()
	return c
}
