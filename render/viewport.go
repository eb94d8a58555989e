package render

import (
	"math"

	"github.com/lixenwraith/yaa/vmath"
)

// Viewport maps world coordinates onto a grid of Cols x Rows cells
// World Y grows downward, same as terminal rows
type Viewport struct {
	Bounds     vmath.Bounds
	Cols, Rows int
}

// CellSize returns the world extent of one cell on each axis
func (v Viewport) CellSize() (float64, float64) {
	if v.Cols <= 0 || v.Rows <= 0 {
		return 0, 0
	}
	return v.Bounds.Width() / float64(v.Cols), v.Bounds.Height() / float64(v.Rows)
}

// ToCell returns the cell containing p and whether it is on the grid
func (v Viewport) ToCell(p vmath.Vec2) (int, int, bool) {
	cw, ch := v.CellSize()
	if cw <= 0 || ch <= 0 {
		return 0, 0, false
	}
	x := int(math.Floor((p.X - v.Bounds.MinX) / cw))
	y := int(math.Floor((p.Y - v.Bounds.MinY) / ch))
	return x, y, x >= 0 && x < v.Cols && y >= 0 && y < v.Rows
}

// ToWorld returns the world position of the center of cell (x, y)
func (v Viewport) ToWorld(x, y int) vmath.Vec2 {
	cw, ch := v.CellSize()
	return vmath.V(v.Bounds.MinX+(float64(x)+0.5)*cw, v.Bounds.MinY+(float64(y)+0.5)*ch)
}
