package render

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/yaa/vmath"
)

// CellDrawer rasterizes debug geometry onto terminal cells
type CellDrawer struct {
	screen   tcell.Screen
	viewport *Viewport
	style    tcell.Style
	glyph    rune
}

// NewCellDrawer draws through viewport, which is read on every call so resizes apply
func NewCellDrawer(screen tcell.Screen, viewport *Viewport, style tcell.Style) *CellDrawer {
	return &CellDrawer{screen: screen, viewport: viewport, style: style, glyph: '·'}
}

// SetStyle changes the style of subsequent primitives
func (d *CellDrawer) SetStyle(style tcell.Style) { d.style = style }

func (d *CellDrawer) plot(x, y int) {
	if x < 0 || y < 0 || x >= d.viewport.Cols || y >= d.viewport.Rows {
		return
	}
	d.screen.SetContent(x, y, d.glyph, nil, d.style)
}

// Line implements entity.Canvas with Bresenham in cell space
func (d *CellDrawer) Line(a, b vmath.Vec2) {
	x0, y0, _ := d.viewport.ToCell(a)
	x1, y1, _ := d.viewport.ToCell(b)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		d.plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// Circle implements entity.Canvas by sampling the outline once per cell of circumference
func (d *CellDrawer) Circle(center vmath.Vec2, radius float64) {
	cw, ch := d.viewport.CellSize()
	if cw <= 0 || ch <= 0 {
		return
	}
	steps := max(8, int(2*math.Pi*radius/math.Min(cw, ch)))
	for i := range steps {
		p := center.Add(vmath.ForAngle(2 * math.Pi * float64(i) / float64(steps)).Scale(radius))
		if x, y, ok := d.viewport.ToCell(p); ok {
			d.plot(x, y)
		}
	}
}

// Polygon implements entity.Canvas as a closed outline
func (d *CellDrawer) Polygon(points []vmath.Vec2) {
	for i := range points {
		d.Line(points[i], points[(i+1)%len(points)])
	}
}

// Text implements entity.Canvas, text starts at the cell containing at
func (d *CellDrawer) Text(at vmath.Vec2, s string) {
	x, y, _ := d.viewport.ToCell(at)
	for _, r := range s {
		if x >= 0 && y >= 0 && x < d.viewport.Cols && y < d.viewport.Rows {
			d.screen.SetContent(x, y, r, nil, d.style)
		}
		x++
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
