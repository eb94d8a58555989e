package vmath

import "math"

// wrapJumpSpans bounds the step-wise correction loop; beyond it the
// coordinate is first reduced with a remainder so huge displacements stay O(1)
const wrapJumpSpans = 1024

// Bounds is a half-open world rectangle [MinX, MaxX) x [MinY, MaxY)
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns the X span
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the Y span
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Valid reports whether both spans are positive and finite
func (b Bounds) Valid() bool {
	w, h := b.Width(), b.Height()
	return w > 0 && h > 0 && !math.IsInf(w, 0) && !math.IsInf(h, 0)
}

// Contains reports whether p lies inside the half-open rectangle
func (b Bounds) Contains(p Vec2) bool {
	return p.X >= b.MinX && p.X < b.MaxX && p.Y >= b.MinY && p.Y < b.MaxY
}

// Wrap applies toroidal correction to both axes independently
func (b Bounds) Wrap(p Vec2) Vec2 {
	return Vec2{
		X: WrapAxis(p.X, b.MinX, b.MaxX),
		Y: WrapAxis(p.Y, b.MinY, b.MaxY),
	}
}

// WrapAxis adds or subtracts the span (hi-lo) until v lies in [lo, hi)
// Non-finite input and empty spans are returned unchanged
func WrapAxis(v, lo, hi float64) float64 {
	span := hi - lo
	if !(span > 0) || math.IsNaN(v) || math.IsInf(v, 0) || math.IsInf(span, 0) {
		return v
	}

	if math.Abs(v-lo) > wrapJumpSpans*span {
		v = lo + math.Mod(v-lo, span)
	}

	for v < lo {
		v += span
	}
	for v >= hi {
		v -= span
	}

	// Rounding at the seam can leave v a hair below lo after subtracting
	if v < lo {
		v = lo
	}
	return v
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NormalizeAngle maps an angle to (-π, π]
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
