package physics

import (
	"math"

	"github.com/lixenwraith/yaa/vmath"
)

// Cell holds the bodies whose bounding box overlaps it
type Cell struct {
	Bodies []*Body
}

// SpatialGrid is a uniform grid over the world bounds used as broad phase
// Bodies outside the bounds are clamped into the border cells
type SpatialGrid struct {
	Width    int
	Height   int
	CellSize float64
	Origin   vmath.Vec2
	Cells    []Cell // 1D array: index = y*Width + x
}

// NewSpatialGrid creates a grid covering bounds with square cells of cellSize
func NewSpatialGrid(bounds vmath.Bounds, cellSize float64) *SpatialGrid {
	g := &SpatialGrid{}
	g.Resize(bounds, cellSize)
	return g
}

// Resize re-dimensions the grid, clearing all data
func (g *SpatialGrid) Resize(bounds vmath.Bounds, cellSize float64) {
	if !(cellSize > 0) {
		cellSize = 64
	}
	w, h := 1, 1
	if bounds.Valid() {
		w = max(1, int(math.Ceil(bounds.Width()/cellSize)))
		h = max(1, int(math.Ceil(bounds.Height()/cellSize)))
	}
	g.Width = w
	g.Height = h
	g.CellSize = cellSize
	g.Origin = vmath.V(bounds.MinX, bounds.MinY)
	g.Cells = make([]Cell, w*h)
}

// cellOf maps a world point to clamped cell coordinates
func (g *SpatialGrid) cellOf(p vmath.Vec2) (int, int) {
	x := int(math.Floor((p.X - g.Origin.X) / g.CellSize))
	y := int(math.Floor((p.Y - g.Origin.Y) / g.CellSize))
	return min(max(x, 0), g.Width-1), min(max(y, 0), g.Height-1)
}

// span returns the inclusive cell range covered by bb
func (g *SpatialGrid) span(bb vmath.AABB) (x0, y0, x1, y1 int) {
	x0, y0 = g.cellOf(bb.Min)
	x1, y1 = g.cellOf(bb.Max)
	return
}

// Insert adds a body to every cell its bounding box overlaps
func (g *SpatialGrid) Insert(b *Body) {
	x0, y0, x1, y1 := g.span(b.shape.bb)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			cell := &g.Cells[y*g.Width+x]
			cell.Bodies = append(cell.Bodies, b)
		}
	}
}

// GetAllAt returns a slice view of bodies at cell (x, y)
// Callers must not retain it across Clear
func (g *SpatialGrid) GetAllAt(x, y int) []*Body {
	if x < 0 || x >= g.Width || y < 0 || y >= g.Height {
		return nil
	}
	return g.Cells[y*g.Width+x].Bodies
}

// Clear empties every cell, keeping capacity
func (g *SpatialGrid) Clear() {
	for i := range g.Cells {
		clear(g.Cells[i].Bodies)
		g.Cells[i].Bodies = g.Cells[i].Bodies[:0]
	}
}

// Pairs calls fn once for every pair of bodies whose bounding boxes overlap
// A pair is reported only from the cell holding the min corner of the box intersection
func (g *SpatialGrid) Pairs(fn func(a, b *Body)) {
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			bodies := g.Cells[y*g.Width+x].Bodies
			for i := 0; i < len(bodies); i++ {
				for j := i + 1; j < len(bodies); j++ {
					a, b := bodies[i], bodies[j]
					if !a.shape.bb.Overlaps(b.shape.bb) {
						continue
					}
					corner := vmath.V(
						math.Max(a.shape.bb.Min.X, b.shape.bb.Min.X),
						math.Max(a.shape.bb.Min.Y, b.shape.bb.Min.Y),
					)
					if cx, cy := g.cellOf(corner); cx != x || cy != y {
						continue
					}
					fn(a, b)
				}
			}
		}
	}
}

// Query calls fn once for every body whose cell range intersects bb
// stamp must be unique per query, it deduplicates bodies spanning several cells
func (g *SpatialGrid) Query(bb vmath.AABB, stamp uint64, fn func(b *Body)) {
	x0, y0, x1, y1 := g.span(bb)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			for _, b := range g.Cells[y*g.Width+x].Bodies {
				if b.stamp == stamp {
					continue
				}
				b.stamp = stamp
				fn(b)
			}
		}
	}
}
