package vmath

import "math"

// AABB is an axis-aligned bounding box, Min inclusive, Max inclusive
type AABB struct {
	Min, Max Vec2
}

// Box builds an AABB from corner coordinates, normalizing the order
func Box(x0, y0, x1, y1 float64) AABB {
	return AABB{
		Min: Vec2{math.Min(x0, x1), math.Min(y0, y1)},
		Max: Vec2{math.Max(x0, x1), math.Max(y0, y1)},
	}
}

// BoxAround returns the square box of half-size r centered at c
func BoxAround(c Vec2, r float64) AABB {
	return AABB{Min: Vec2{c.X - r, c.Y - r}, Max: Vec2{c.X + r, c.Y + r}}
}

// Overlaps reports whether two boxes share any point
func (b AABB) Overlaps(o AABB) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y
}

// Contains reports whether p lies inside the box
func (b AABB) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Union returns the smallest box containing both
func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: Vec2{math.Min(b.Min.X, o.Min.X), math.Min(b.Min.Y, o.Min.Y)},
		Max: Vec2{math.Max(b.Max.X, o.Max.X), math.Max(b.Max.Y, o.Max.Y)},
	}
}

// Expand grows the box by margin on every side
func (b AABB) Expand(margin float64) AABB {
	return AABB{
		Min: Vec2{b.Min.X - margin, b.Min.Y - margin},
		Max: Vec2{b.Max.X + margin, b.Max.Y + margin},
	}
}

// Center returns the box midpoint
func (b AABB) Center() Vec2 {
	return Vec2{(b.Min.X + b.Max.X) * 0.5, (b.Min.Y + b.Max.Y) * 0.5}
}

// Width returns the X extent
func (b AABB) Width() float64 { return b.Max.X - b.Min.X }

// Height returns the Y extent
func (b AABB) Height() float64 { return b.Max.Y - b.Min.Y }

// SegmentBox returns the bounding box of segment a-b
func SegmentBox(a, b Vec2) AABB {
	return Box(a.X, a.Y, b.X, b.Y)
}
