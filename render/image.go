package render

import (
	"bytes"
	"image/color"
	"sync/atomic"

	"github.com/fogleman/gg"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/yaa/physics"
	"github.com/lixenwraith/yaa/service"
	"github.com/lixenwraith/yaa/vmath"
)

// SnapshotPriority runs the snapshotter after the simulation finished its tick
const SnapshotPriority = 30

var (
	colorBackground = color.RGBA{R: 0x1a, G: 0x1b, B: 0x26, A: 0xff}
	colorOutline    = color.RGBA{R: 0x7d, G: 0xcf, B: 0xff, A: 0xff}
	colorSensor     = color.RGBA{R: 0xe0, G: 0xaf, B: 0x68, A: 0xff}
)

// ImageDrawer rasterizes debug geometry into an RGBA image
type ImageDrawer struct {
	dc     *gg.Context
	bounds vmath.Bounds
	sx, sy float64
}

// NewImageDrawer creates a width x height image covering bounds
func NewImageDrawer(bounds vmath.Bounds, width, height int) *ImageDrawer {
	d := &ImageDrawer{
		dc:     gg.NewContext(width, height),
		bounds: bounds,
		sx:     float64(width) / bounds.Width(),
		sy:     float64(height) / bounds.Height(),
	}
	d.dc.SetLineWidth(1.5)
	d.Reset()
	return d
}

// Reset fills the image with the background
func (d *ImageDrawer) Reset() {
	d.dc.SetColor(colorBackground)
	d.dc.Clear()
	d.dc.SetColor(colorOutline)
}

// SetColor changes the stroke color of subsequent primitives
func (d *ImageDrawer) SetColor(c color.Color) { d.dc.SetColor(c) }

func (d *ImageDrawer) px(p vmath.Vec2) (float64, float64) {
	return (p.X - d.bounds.MinX) * d.sx, (p.Y - d.bounds.MinY) * d.sy
}

func (d *ImageDrawer) Line(a, b vmath.Vec2) {
	x0, y0 := d.px(a)
	x1, y1 := d.px(b)
	d.dc.DrawLine(x0, y0, x1, y1)
	d.dc.Stroke()
}

func (d *ImageDrawer) Circle(center vmath.Vec2, radius float64) {
	x, y := d.px(center)
	d.dc.DrawEllipse(x, y, radius*d.sx, radius*d.sy)
	d.dc.Stroke()
}

func (d *ImageDrawer) Polygon(points []vmath.Vec2) {
	if len(points) == 0 {
		return
	}
	d.dc.MoveTo(d.px(points[0]))
	for _, p := range points[1:] {
		d.dc.LineTo(d.px(p))
	}
	d.dc.ClosePath()
	d.dc.Stroke()
}

func (d *ImageDrawer) Text(at vmath.Vec2, s string) {
	x, y := d.px(at)
	d.dc.DrawString(s, x, y)
}

// PNG encodes the current image
func (d *ImageDrawer) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.dc.EncodePNG(&buf); err != nil {
		return nil, eris.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}

// Snapshotter periodically renders the physics world to PNG for out-of-loop readers
// Rendering happens on the frame goroutine, Latest is safe from any goroutine
type Snapshotter struct {
	physics  *physics.Integrator
	drawer   *ImageDrawer
	interval float64
	elapsed  float64
	latest   atomic.Pointer[[]byte]
	log      zerolog.Logger
}

// NewSnapshotter renders a width x height image every interval seconds of simulated time
func NewSnapshotter(p *physics.Integrator, width, height int, interval float64, log zerolog.Logger) *Snapshotter {
	return &Snapshotter{
		physics:  p,
		drawer:   NewImageDrawer(p.Bounds(), width, height),
		interval: interval,
		elapsed:  interval, // First tick renders
		log:      log.With().Str("service", "snapshot").Logger(),
	}
}

func (s *Snapshotter) Priority() int { return SnapshotPriority }

func (s *Snapshotter) Handlers() service.Handlers {
	return service.Handlers{
		service.EventTick: service.OnTick(s.tick),
	}
}

func (s *Snapshotter) tick(dt float64) error {
	s.elapsed += dt
	if s.elapsed < s.interval {
		return nil
	}
	s.elapsed = 0
	return s.Capture()
}

// Capture renders the world now
func (s *Snapshotter) Capture() error {
	s.drawer.Reset()
	for _, b := range s.physics.World().Bodies() {
		if b.Sensor() {
			s.drawer.SetColor(colorSensor)
		} else {
			s.drawer.SetColor(colorOutline)
		}
		physics.DrawShape(s.drawer, b)
	}
	png, err := s.drawer.PNG()
	if err != nil {
		return err
	}
	s.latest.Store(&png)
	s.log.Debug().Int("bytes", len(png)).Int("bodies", len(s.physics.World().Bodies())).Msg("snapshot captured")
	return nil
}

// Latest returns the last encoded snapshot, nil before the first capture
func (s *Snapshotter) Latest() []byte {
	if p := s.latest.Load(); p != nil {
		return *p
	}
	return nil
}
